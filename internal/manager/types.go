package manager

// State represents the lifecycle state of the model instance.
type State string

const (
	StateNoModel State = "no_model"
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// ModelHandle represents the single loaded inference instance for the process
// lifetime. It is created at most once and never replaced.
type ModelHandle struct {
	// Path of the artifact backing the instance.
	Path string
	// Number of layers offloaded to acceleration hardware (0 = CPU only).
	GPULayers int
	// Context window size the instance was loaded with.
	CtxSize int

	sess ModelSession
}

// GPUInfo is the result of the acceleration hardware probe.
type GPUInfo struct {
	Present bool
	Name    string
}
