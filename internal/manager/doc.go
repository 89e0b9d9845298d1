// Package manager owns the single model instance for the process: it brings
// the model from "absent" to "ready" exactly once, and serializes completion
// requests against it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, readiness/health getters.
//   - config.go: ManagerConfig and package defaults.
//   - types.go: lifecycle state and the ModelHandle.
//   - errors.go: error types and helpers (IsModelUnavailable, IsInference, IsTooBusy).
//   - gpu.go: best-effort acceleration hardware probe.
//   - discover.go: models-dir scan for *.gguf artifacts.
//   - download.go: default-artifact acquisition with progress logging.
//   - ensure.go: EnsureReady startup lifecycle.
//   - gate.go: FIFO admission and the single in-flight completion slot.
//   - events.go: lifecycle event publisher (noop by default).
//
// Build tags and runtimes:
//
//   - In-process llama: uses the go-llama.cpp adapter, enabled with
//     `-tags=llama` (files: adapter_llama.go, llama_cgo.go).
//   - Default builds compile a no-CGO stub (adapter_llama_stub.go) whose Load
//     fails, which leaves the manager in the "no model" state instead of
//     crashing startup.
//
// External packages should treat this package as the model-lifecycle layer and
// use public methods only (NewWithConfig, EnsureReady, Ready, Health, Complete).
package manager
