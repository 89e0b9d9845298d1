// Package agent provides role-conditioned synthesis on top of an
// OpenAI-compatible chat endpoint. An Agent wraps a persona (name, role, goal,
// backstory) around a single prompt and runs it through its client; by default
// that client loops back into this gateway's own /v1/chat/completions, so
// agent output ultimately comes from the same local model instance.
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"vanguardd/pkg/types"
)

// Spec describes an agent persona.
type Spec struct {
	Name      string
	Role      string
	Goal      string
	Backstory string
	Model     string
}

// Runner is the synthesis capability consumed by the orchestrator.
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// ChatClient is the completion transport an Agent drives.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionResponse, error)
}

// Agent binds a Spec to a ChatClient.
type Agent struct {
	spec   Spec
	client ChatClient
	log    zerolog.Logger
}

// New constructs an Agent.
func New(spec Spec, client ChatClient, log zerolog.Logger) *Agent {
	return &Agent{spec: spec, client: client, log: log}
}

// Run executes one synthesis pass: persona as system message, prompt as user
// message. Any transport or engine failure is returned to the caller, which
// decides on fallback.
func (a *Agent) Run(ctx context.Context, prompt string) (string, error) {
	req := types.ChatCompletionRequest{
		Messages: []types.ChatMessage{
			{Role: types.RoleSystem, Content: a.systemPrompt()},
			{Role: types.RoleUser, Content: prompt},
		},
	}
	a.log.Debug().Str("agent", a.spec.Name).Msg("starting agentic synthesis")
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("agent synthesis returned no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("agent synthesis returned empty content")
	}
	return out, nil
}

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(a.spec.Name)
	b.WriteString(", a ")
	b.WriteString(a.spec.Role)
	b.WriteString(".")
	if a.spec.Goal != "" {
		b.WriteString(" Your goal: ")
		b.WriteString(a.spec.Goal)
	}
	if a.spec.Backstory != "" {
		b.WriteString(" ")
		b.WriteString(a.spec.Backstory)
	}
	return b.String()
}
