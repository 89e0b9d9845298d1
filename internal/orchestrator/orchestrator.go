// Package orchestrator implements the two-stage synthesis chain: agent-mediated
// synthesis first, direct completion through the inference gate as fallback.
// Each stage is attempted at most once per request; there are no retries.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vanguardd/internal/agent"
	"vanguardd/internal/manager"
	"vanguardd/internal/retrieval"
	"vanguardd/pkg/types"
)

// Stage names the states of the chain.
type Stage string

const (
	StagePrimary  Stage = "primary"
	StageFallback Stage = "fallback"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Request is one synthesis task: the game and the user's free-text input
// (an achievement name or a question, depending on the profile).
type Request struct {
	Game  string
	Input string
}

// Result is a completed chain run.
type Result struct {
	// Stage is StageDone on success.
	Stage Stage
	// Origin is the stage that produced the text (StagePrimary or StageFallback).
	Origin Stage
	// Text is the generated answer.
	Text string
}

// Completer is the inference-gate surface the fallback stage depends on.
type Completer interface {
	Complete(ctx context.Context, msgs []types.ChatMessage, opts manager.GenOptions) (string, error)
}

// Orchestrator runs the chain for one endpoint profile. The same type serves
// both the guide and expert endpoints; only the Profile differs.
type Orchestrator struct {
	profile Profile
	runner  agent.Runner
	gate    Completer
	log     zerolog.Logger
}

// New constructs an Orchestrator.
func New(profile Profile, runner agent.Runner, gate Completer, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{profile: profile, runner: runner, gate: gate, log: log}
}

// Profile exposes the profile the orchestrator was built with.
func (o *Orchestrator) Profile() Profile { return o.profile }

// Generate runs PRIMARY, then FALLBACK on any PRIMARY failure.
//
// PRIMARY embeds the task instructions, the user's input and the retrieved
// context (or an explicit no-data marker) into the profile's prompt and runs
// it through the agent. FALLBACK strips the chain down to a reduced prompt
// straight through the gate with the profile's token budget. When both fail,
// the returned error carries the PRIMARY-stage cause, which is the
// diagnostically useful one.
//
// Persistence is the caller's concern: append the user message before calling
// Generate, append the answer only on a done result.
func (o *Orchestrator) Generate(ctx context.Context, req Request, rctx retrieval.Context) (Result, error) {
	runID := uuid.NewString()
	log := o.log.With().Str("run_id", runID).Str("profile", o.profile.Name).Str("game", req.Game).Logger()
	start := time.Now()

	stage := StagePrimary
	log.Info().Str("stage", string(stage)).Msg("synthesis start")
	text, perr := o.runner.Run(ctx, o.profile.PrimaryPrompt(req, rctx))
	if perr == nil {
		log.Info().Str("stage", string(stage)).Dur("dur", time.Since(start)).Msg("synthesis done")
		return Result{Stage: StageDone, Origin: StagePrimary, Text: text}, nil
	}
	if ctx.Err() != nil {
		return Result{Stage: StageFailed, Origin: StagePrimary}, ctx.Err()
	}
	log.Warn().Err(perr).Msg("agent synthesis failed, falling back to direct completion")

	stage = StageFallback
	msgs := []types.ChatMessage{
		{Role: types.RoleSystem, Content: o.profile.FallbackSystem(req)},
		{Role: types.RoleUser, Content: o.profile.FallbackUser(req, rctx)},
	}
	text, ferr := o.gate.Complete(ctx, msgs, manager.GenOptions{MaxTokens: o.profile.MaxTokens})
	if ferr != nil {
		log.Error().Err(ferr).Str("stage", string(stage)).Msg("fallback completion failed")
		return Result{Stage: StageFailed, Origin: StageFallback}, ErrChain(perr, ferr)
	}
	log.Info().Str("stage", string(stage)).Dur("dur", time.Since(start)).Msg("synthesis done")
	return Result{Stage: StageDone, Origin: StageFallback, Text: text}, nil
}
