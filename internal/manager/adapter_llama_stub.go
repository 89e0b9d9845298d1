//go:build !llama

package manager

// This file provides a no-CGO stub for the llama adapter. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real adapter lives in adapter_llama.go (tagged 'llama').

import "errors"

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

// llamaAdapter is a stub that satisfies ChatAdapter but refuses to load a
// model without the 'llama' build tag. Load failing here leaves the manager in
// the "no model" state, which every endpoint reports as service-unavailable.
type llamaAdapter struct {
	ctxSize int
	threads int
}

func NewLlamaAdapter(ctxSize, threads int) ChatAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads}
}

func (a *llamaAdapter) Load(path string, params LoadParams) (ModelSession, error) {
	return nil, errors.New("llama support not built (missing 'llama' build tag)")
}
