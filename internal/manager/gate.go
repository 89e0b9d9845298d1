package manager

import (
	"context"
	"time"

	"vanguardd/pkg/types"
)

// GenOptions are the sampling knobs exposed per completion request.
type GenOptions struct {
	Temperature float64
	MaxTokens   int
}

// Complete runs one chat completion against the single loaded instance.
// Fails with a model-unavailable error when no handle is ready and with an
// inference error wrapping any engine failure. No retry is attempted here;
// retry-like behavior (the fallback chain) belongs to the caller.
//
// The underlying engine does not guarantee safe concurrent generation on one
// instance, so this is the one mandatory mutual-exclusion point: at most one
// in-flight call, concurrent callers queue FIFO.
func (m *Manager) Complete(ctx context.Context, msgs []types.ChatMessage, opts GenOptions) (string, error) {
	m.mu.RLock()
	h := m.handle
	ready := m.state == StateReady
	m.mu.RUnlock()
	if !ready || h == nil {
		return "", ErrModelUnavailable("model not loaded")
	}

	release, err := m.beginGeneration(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	// Re-check under the slot: Close may have freed the instance while this
	// call was queued.
	m.mu.RLock()
	h = m.handle
	ready = m.state == StateReady
	m.mu.RUnlock()
	if !ready || h == nil {
		return "", ErrModelUnavailable("model not loaded")
	}

	res, err := h.sess.ChatComplete(ctx, msgs, opts)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", ErrInference(err)
	}
	return res.Content, nil
}

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context.
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	// Try to reserve a queue slot with timeout.
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{}
	}

	// Wait to acquire the single in-flight slot.
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(m.maxWait)
	defer timer2.Stop()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{}
	}
}
