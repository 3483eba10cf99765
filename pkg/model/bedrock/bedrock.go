// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bedrock provides a model.LLM on Amazon Bedrock's Converse API.
//
// Authentication is handled by the AWS SDK v2 credential chain:
//  1. AWS_ACCESS_KEY_ID + AWS_SECRET_ACCESS_KEY (+ optional AWS_SESSION_TOKEN)
//  2. AWS_PROFILE — named profile from ~/.aws/credentials
//  3. ~/.aws/credentials default profile
//  4. IAM instance roles / ECS task roles / IRSA
package bedrock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/kadirpekel/relay/pkg/model"
)

// Config configures the Bedrock client.
type Config struct {
	// ModelID is the Bedrock model identifier, e.g.
	// "apac.anthropic.claude-sonnet-4-20250514-v1:0".
	ModelID string

	// Region is the AWS region. Falls back to the SDK's resolution
	// (AWS_REGION, profile config) when empty.
	Region string

	// Profile selects a named profile from ~/.aws/credentials.
	Profile string

	Temperature float64
	MaxTokens   int
}

// Provider is an Amazon Bedrock Converse client.
type Provider struct {
	cfg Config

	mu     sync.Mutex
	client *bedrockruntime.Client
}

// New creates a Bedrock provider. The AWS client is built lazily on first
// call so construction never touches the network.
func New(cfg Config) (*Provider, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock: model id is required (e.g. BEDROCK_MODEL_ID)")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &Provider{cfg: cfg}, nil
}

func (p *Provider) Name() string { return p.cfg.ModelID }

func (p *Provider) Close() error { return nil }

func (p *Provider) converseClient(ctx context.Context) (*bedrockruntime.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if p.cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(p.cfg.Region))
	}
	if p.cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(p.cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	p.client = bedrockruntime.NewFromConfig(awsCfg)
	return p.client, nil
}

// Generate implements model.LLM.
func (p *Provider) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	client, err := p.converseClient(ctx)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.cfg.ModelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
	}

	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	ic := &types.InferenceConfiguration{}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	ic.MaxTokens = aws.Int32(int32(maxTokens))
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.cfg.Temperature
	}
	if temperature > 0 {
		ic.Temperature = aws.Float32(float32(temperature))
	}
	input.InferenceConfig = ic

	out, err := client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock: Converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("bedrock: unexpected output type %T", out.Output)
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(tb.Value)
		}
	}

	resp := &model.Response{Text: text.String()}
	if out.Usage != nil {
		resp.Usage = model.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}

	return resp, nil
}

// Ensure Provider implements model.LLM.
var _ model.LLM = (*Provider)(nil)

func init() {
	model.Register("bedrock", func(s model.Settings) (model.LLM, error) {
		return New(Config{
			ModelID:     s.Model,
			Region:      s.Region,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
		})
	})
}
