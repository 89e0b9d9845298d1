package manager

import (
	"context"
	"errors"
	"os"
	"time"
)

// EnsureReady brings the model instance from "absent" to "ready": hardware
// probe, artifact discovery (with default-artifact acquisition when the dir is
// empty), then a single load. It is idempotent; only the first call does work.
//
// Every failure mode degrades to the "no model" state instead of aborting the
// process; downstream callers observe it through Ready and get a
// model-unavailable error per request. The returned error is informational.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	if m.ensured {
		m.mu.Unlock()
		return nil
	}
	m.ensured = true
	m.state = StateLoading
	m.mu.Unlock()

	startTs := time.Now()

	// 1. Hardware probe. Advisory only: failure means CPU mode.
	gpu := detectGPU(ctx)
	m.mu.Lock()
	m.gpu = gpu
	m.mu.Unlock()
	if gpu.Present {
		m.log.Info().Str("gpu", gpu.Name).Msg("acceleration hardware detected, offloading layers")
	} else {
		m.log.Info().Msg("no acceleration hardware detected, running on CPU")
	}
	m.publisher.Publish(Event{Name: "gpu_probe", Fields: map[string]any{"present": gpu.Present, "name": gpu.Name}})

	// 2. Artifact discovery; acquire the default artifact when none present.
	paths, err := scanArtifacts(m.cfg.ModelsDir, m.cfg.ModelExt)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warn().Err(err).Str("dir", m.cfg.ModelsDir).Msg("models dir scan failed")
	}
	if len(paths) == 0 {
		m.log.Info().Str("dir", m.cfg.ModelsDir).Str("artifact", m.cfg.ArtifactName).Msg("no model artifacts found, acquiring default")
		m.publisher.Publish(Event{Name: "download_start", Fields: map[string]any{"artifact": m.cfg.ArtifactName}})
		dest, derr := m.acquireDefaultArtifact(ctx)
		if derr != nil {
			m.log.Error().Err(derr).Msg("artifact acquisition failed; place a model file in the models dir manually")
			m.publisher.Publish(Event{Name: "download_fail", Fields: map[string]any{"error": derr.Error()}})
			m.setNoModel()
			return derr
		}
		m.publisher.Publish(Event{Name: "download_done", Fields: map[string]any{"path": dest}})
		paths = []string{dest}
	}

	// 3. Load the first artifact in enumeration order.
	path := paths[0]
	layers := 0
	if gpu.Present {
		layers = m.cfg.GPULayers
	}
	m.log.Info().Str("path", path).Int("gpu_layers", layers).Int("ctx", m.cfg.CtxSize).Msg("loading model")
	sess, lerr := m.adapter.Load(path, LoadParams{CtxSize: m.cfg.CtxSize, GPULayers: layers, Threads: m.cfg.Threads})
	if lerr != nil {
		m.log.Error().Err(lerr).Str("path", path).Msg("model load failed")
		m.publisher.Publish(Event{Name: "load_fail", Fields: map[string]any{"path": path, "error": lerr.Error()}})
		m.setNoModel()
		return lerr
	}

	// 4. Readiness flag flips only here.
	m.mu.Lock()
	m.handle = &ModelHandle{Path: path, GPULayers: layers, CtxSize: m.cfg.CtxSize, sess: sess}
	m.state = StateReady
	m.mu.Unlock()
	m.log.Info().Str("path", path).Dur("dur", time.Since(startTs)).Msg("model loaded")
	m.publisher.Publish(Event{Name: "load_ok", Fields: map[string]any{"path": path}})
	return nil
}

func (m *Manager) setNoModel() {
	m.mu.Lock()
	m.state = StateNoModel
	m.handle = nil
	m.mu.Unlock()
}
