package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"vanguardd/internal/manager"
	"vanguardd/internal/retrieval"
	"vanguardd/pkg/types"
)

type fakeRunner struct {
	prompt string
	calls  int
	out    string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.out, f.err
}

type fakeGate struct {
	msgs  []types.ChatMessage
	opts  manager.GenOptions
	calls int
	out   string
	err   error
}

func (f *fakeGate) Complete(ctx context.Context, msgs []types.ChatMessage, opts manager.GenOptions) (string, error) {
	f.calls++
	f.msgs = msgs
	f.opts = opts
	return f.out, f.err
}

func TestGeneratePrimarySuccess(t *testing.T) {
	runner := &fakeRunner{out: "agent answer"}
	gate := &fakeGate{}
	o := New(GuideProfile(), runner, gate, zerolog.Nop())

	res, err := o.Generate(context.Background(), Request{Game: "Hades", Input: "Skelly Slam"}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Stage != StageDone || res.Origin != StagePrimary || res.Text != "agent answer" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gate.calls != 0 {
		t.Fatalf("gate must not be touched when the agent succeeds")
	}
	if !strings.Contains(runner.prompt, "Skelly Slam") || !strings.Contains(runner.prompt, "Hades") {
		t.Fatalf("primary prompt missing request fields: %q", runner.prompt)
	}
	if !strings.Contains(runner.prompt, "No real-time data found") {
		t.Fatalf("empty retrieval must embed the no-data marker: %q", runner.prompt)
	}
}

func TestGeneratePrimaryEmbedsContext(t *testing.T) {
	runner := &fakeRunner{out: "ok"}
	o := New(ExpertProfile(), runner, &fakeGate{}, zerolog.Nop())
	rctx := retrieval.Context{{Title: "Wiki", Body: "Boss is weak to fire."}}

	if _, err := o.Generate(context.Background(), Request{Game: "Hades", Input: "How to beat Theseus?"}, rctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(runner.prompt, "Source: Wiki") || !strings.Contains(runner.prompt, "weak to fire") {
		t.Fatalf("retrieved context missing from prompt: %q", runner.prompt)
	}
	if strings.Contains(runner.prompt, "No real-time data found") {
		t.Fatalf("no-data marker must not appear alongside real context")
	}
}

func TestGenerateFallsBack(t *testing.T) {
	runner := &fakeRunner{err: errors.New("agent blew up")}
	gate := &fakeGate{out: "fallback answer"}
	profile := GuideProfile()
	o := New(profile, runner, gate, zerolog.Nop())

	res, err := o.Generate(context.Background(), Request{Game: "Hades", Input: "Skelly Slam"}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Stage != StageDone || res.Origin != StageFallback || res.Text != "fallback answer" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if runner.calls != 1 || gate.calls != 1 {
		t.Fatalf("each stage must run at most once, got runner=%d gate=%d", runner.calls, gate.calls)
	}
	if len(gate.msgs) != 2 || gate.msgs[0].Role != types.RoleSystem || gate.msgs[1].Role != types.RoleUser {
		t.Fatalf("fallback must send system+user messages, got %+v", gate.msgs)
	}
	if !strings.Contains(gate.msgs[1].Content, "Skelly Slam") {
		t.Fatalf("fallback user message missing input: %q", gate.msgs[1].Content)
	}
	if gate.opts.MaxTokens != profile.MaxTokens {
		t.Fatalf("fallback budget = %d, want %d", gate.opts.MaxTokens, profile.MaxTokens)
	}
}

func TestGenerateTotalFailure(t *testing.T) {
	primaryErr := errors.New("agent blew up")
	runner := &fakeRunner{err: primaryErr}
	gate := &fakeGate{err: errors.New("engine out of memory")}
	o := New(ExpertProfile(), runner, gate, zerolog.Nop())

	res, err := o.Generate(context.Background(), Request{Game: "Hades", Input: "q"}, nil)
	if err == nil {
		t.Fatalf("expected error when both stages fail")
	}
	if res.Stage != StageFailed {
		t.Fatalf("expected failed stage, got %+v", res)
	}
	if !IsChainFailure(err) {
		t.Fatalf("expected chain failure, got %T", err)
	}
	// The surfaced message is the primary cause; the fallback error rides along.
	if err.Error() != primaryErr.Error() {
		t.Fatalf("error message = %q, want primary cause %q", err.Error(), primaryErr.Error())
	}
	if !errors.Is(err, primaryErr) {
		t.Fatalf("primary cause must unwrap")
	}
	var chainErr *OrchestratorError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *OrchestratorError, got %T", err)
	}
	if chainErr.Fallback() == nil || !strings.Contains(chainErr.Fallback().Error(), "out of memory") {
		t.Fatalf("fallback cause missing: %v", chainErr.Fallback())
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{err: context.Canceled}
	gate := &fakeGate{}
	o := New(GuideProfile(), runner, gate, zerolog.Nop())
	cancel()

	_, err := o.Generate(ctx, Request{Game: "g", Input: "i"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if gate.calls != 0 {
		t.Fatalf("canceled request must not fall through to the gate")
	}
}

func TestProfiles(t *testing.T) {
	g := GuideProfile()
	if g.SearchResults != 3 || g.SearchSuffix != "achievement guide" || g.MaxTokens != 800 {
		t.Fatalf("unexpected guide profile: %+v", g)
	}
	e := ExpertProfile()
	if e.SearchResults != 4 || e.SearchSuffix != "guide walkthrough" || e.MaxTokens != 1024 {
		t.Fatalf("unexpected expert profile: %+v", e)
	}
	if g.Agent.Name == "" || e.Agent.Name == "" || g.Agent.Name == e.Agent.Name {
		t.Fatalf("profiles must carry distinct personas")
	}
}
