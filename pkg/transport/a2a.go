package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
)

const taskPollInterval = 200 * time.Millisecond

// A2A calls agents over the Agent-to-Agent protocol using a2a-go.
//
// The agent card is resolved from the agent's well-known path on first use
// and cached for the lifetime of the caller.
type A2A struct {
	resolver *agentcard.Resolver
	client   *http.Client

	mu    sync.Mutex
	cards map[string]*a2a.AgentCard
}

// NewA2A creates a protocol-mediated caller. The timeout bounds each HTTP
// round trip to an agent; zero means the default 30s. The client must be
// passed down to a2a-go explicitly: its built-in fallback times out after
// 5s, which no model-backed agent can meet.
func NewA2A(timeout time.Duration) *A2A {
	if timeout == 0 {
		timeout = defaultCallTimeout
	}
	return &A2A{
		resolver: agentcard.DefaultResolver,
		client:   &http.Client{Timeout: timeout},
		cards:    make(map[string]*a2a.AgentCard),
	}
}

func (t *A2A) card(ctx context.Context, agent AgentRef) (*a2a.AgentCard, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if card, ok := t.cards[agent.URL]; ok {
		return card, nil
	}

	card, err := t.resolver.Resolve(ctx, agent.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve agent card: %w", agent.Name, err)
	}
	t.cards[agent.URL] = card
	return card, nil
}

// Call implements Caller. It sends one message/send request and extracts
// the reply text from the returned Message or Task.
func (t *A2A) Call(ctx context.Context, agent AgentRef, text string) (string, error) {
	card, err := t.card(ctx, agent)
	if err != nil {
		return "", err
	}

	client, err := a2aclient.NewFromCard(ctx, card, a2aclient.WithJSONRPCTransport(t.client))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create client: %w", agent.Name, err)
	}
	defer func() { _ = client.Destroy() }()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: text})
	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return "", fmt.Errorf("%s: message/send failed: %w", agent.Name, err)
	}

	switch r := result.(type) {
	case *a2a.Message:
		return messageText(r), nil
	case *a2a.Task:
		return t.awaitTask(ctx, client, agent, r)
	default:
		return "", fmt.Errorf("%s: unexpected message/send result %T", agent.Name, result)
	}
}

// awaitTask polls until the task reaches a terminal state, then pulls the
// reply text out of its artifacts and status message.
func (t *A2A) awaitTask(ctx context.Context, client *a2aclient.Client, agent AgentRef, task *a2a.Task) (string, error) {
	for !task.Status.State.Terminal() {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%s: %w", agent.Name, ctx.Err())
		case <-time.After(taskPollInterval):
		}

		refreshed, err := client.GetTask(ctx, &a2a.TaskQueryParams{ID: task.ID})
		if err != nil {
			return "", fmt.Errorf("%s: tasks/get failed: %w", agent.Name, err)
		}
		task = refreshed
	}

	if task.Status.State != a2a.TaskStateCompleted {
		detail := messageText(task.Status.Message)
		if detail == "" {
			detail = string(task.Status.State)
		}
		return "", fmt.Errorf("%s: task %s ended in state %s: %s", agent.Name, task.ID, task.Status.State, detail)
	}

	return taskText(task), nil
}

func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

func taskText(task *a2a.Task) string {
	var texts []string
	for _, artifact := range task.Artifacts {
		var b strings.Builder
		for _, part := range artifact.Parts {
			if tp, ok := part.(a2a.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
		if b.Len() > 0 {
			texts = append(texts, b.String())
		}
	}
	if s := messageText(task.Status.Message); s != "" {
		texts = append(texts, s)
	}
	return strings.Join(texts, "\n")
}

var _ Caller = (*A2A)(nil)
