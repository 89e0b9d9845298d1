package manager

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultCtxSize       = 4096
	defaultGPULayers     = 33
	defaultModelExt      = ".gguf"
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second

	// Known-compatible default artifact, fetched when the models dir is empty.
	defaultArtifactName = "mistral-7b-instruct-v0.2.Q4_K_M.gguf"
	defaultArtifactURL  = "https://huggingface.co/TheBloke/Mistral-7B-Instruct-v0.2-GGUF/resolve/main/mistral-7b-instruct-v0.2.Q4_K_M.gguf"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Directory scanned for model artifacts.
	ModelsDir string
	// Artifact file extension to match (default ".gguf").
	ModelExt string
	// Context window size (default 4096).
	CtxSize int
	// Layers offloaded when a GPU is present (default 33).
	GPULayers int
	// Threads for generation (default NumCPU).
	Threads int
	// Artifact downloaded when the dir holds no match (defaults above).
	ArtifactName string
	ArtifactURL  string

	// Queue config for the inference gate.
	MaxQueueDepth int
	MaxWait       time.Duration

	// Optional overrides, mainly for tests.
	Adapter   ChatAdapter
	Publisher EventPublisher
	Logger    zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig, applying defaults.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.ModelExt == "" {
		cfg.ModelExt = defaultModelExt
	}
	if cfg.CtxSize <= 0 {
		cfg.CtxSize = defaultCtxSize
	}
	if cfg.GPULayers <= 0 {
		cfg.GPULayers = defaultGPULayers
	}
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	if cfg.ArtifactName == "" {
		cfg.ArtifactName = defaultArtifactName
	}
	if cfg.ArtifactURL == "" {
		cfg.ArtifactURL = defaultArtifactURL
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.Adapter == nil {
		cfg.Adapter = NewLlamaAdapter(cfg.CtxSize, cfg.Threads)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	return &Manager{
		cfg:       cfg,
		state:     StateNoModel,
		gpu:       GPUInfo{Name: "None"},
		adapter:   cfg.Adapter,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		genCh:     make(chan struct{}, 1),
		queueCh:   make(chan struct{}, cfg.MaxQueueDepth),
		maxWait:   cfg.MaxWait,
		startTime: time.Now(),
	}
}
