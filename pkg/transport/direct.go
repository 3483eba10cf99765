package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultCallTimeout bounds one agent round trip on either transport.
const defaultCallTimeout = 30 * time.Second

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Message InvokeMessage `json:"message"`
}

// InvokeMessage mirrors the message envelope the agents accept on their
// direct endpoint.
type InvokeMessage struct {
	Parts []InvokePart `json:"parts"`
}

// InvokePart wraps one text fragment.
type InvokePart struct {
	Root InvokeText `json:"root"`
}

// InvokeText is the innermost text holder.
type InvokeText struct {
	Text string `json:"text"`
}

// NewInvokeRequest builds an invoke envelope around a single text part.
func NewInvokeRequest(text string) InvokeRequest {
	return InvokeRequest{
		Message: InvokeMessage{
			Parts: []InvokePart{{Root: InvokeText{Text: text}}},
		},
	}
}

// Text concatenates the text of all parts.
func (m InvokeMessage) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Root.Text)
	}
	return b.String()
}

// Direct calls agents over plain HTTP, bypassing the A2A protocol layer.
//
// The pipeline treats agent calls as all-or-nothing: a failed call fails
// the stage, so the client performs no retries. The timeout bounds the
// whole exchange.
type Direct struct {
	client *http.Client
}

// NewDirect creates a direct caller. A zero timeout means the default 30s.
func NewDirect(timeout time.Duration) *Direct {
	if timeout == 0 {
		timeout = defaultCallTimeout
	}
	return &Direct{client: &http.Client{Timeout: timeout}}
}

// Call implements Caller via POST {agent.URL}/invoke.
func (d *Direct) Call(ctx context.Context, agent AgentRef, text string) (string, error) {
	body, err := json.Marshal(NewInvokeRequest(text))
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal invoke request: %w", agent.Name, err)
	}

	url := strings.TrimSuffix(agent.URL, "/") + "/invoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", agent.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", agent.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", agent.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: server returned %d: %s", agent.Name, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	// The agent replies with the same message envelope. Fall back to the
	// raw body for agents that return bare text.
	var reply InvokeRequest
	if err := json.Unmarshal(respBody, &reply); err == nil && len(reply.Message.Parts) > 0 {
		return reply.Message.Text(), nil
	}
	return string(respBody), nil
}

var _ Caller = (*Direct)(nil)
