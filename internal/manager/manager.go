package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vanguardd/pkg/types"
)

// Manager owns the single ModelHandle and the admission queue in front of it.
type Manager struct {
	mu      sync.RWMutex
	cfg     ManagerConfig
	state   State
	handle  *ModelHandle
	gpu     GPUInfo
	ensured bool

	adapter   ChatAdapter
	publisher EventPublisher
	log       zerolog.Logger

	// Queueing primitives: single in-flight generation + FIFO queue slots.
	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration

	startTime time.Time
}

// Ready reports whether the model instance finished loading.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.handle != nil
}

// GPU returns the result of the hardware probe.
func (m *Manager) GPU() GPUInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gpu
}

// Handle returns a read-only view of the loaded instance, or nil.
func (m *Manager) Handle() *ModelHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

// Health builds the GET /health payload.
func (m *Manager) Health() types.HealthResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.HealthResponse{
		Status:      "ok",
		GPU:         m.gpu.Present,
		GPUName:     m.gpu.Name,
		ModelLoaded: m.state == StateReady && m.handle != nil,
	}
}

// Close releases the loaded instance. Only meaningful at process shutdown.
// It holds the generation slot while freeing the session, so an in-flight
// completion always finishes first and a queued one re-checks readiness and
// gets a model-unavailable error instead of a freed instance.
func (m *Manager) Close() error {
	m.genCh <- struct{}{}
	defer func() { <-m.genCh }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil || m.handle.sess == nil {
		return nil
	}
	err := m.handle.sess.Close()
	m.handle = nil
	m.state = StateNoModel
	return err
}
