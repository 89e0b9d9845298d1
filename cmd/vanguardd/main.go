package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vanguardd/internal/agent"
	"vanguardd/internal/config"
	"vanguardd/internal/httpapi"
	"vanguardd/internal/manager"
	"vanguardd/internal/orchestrator"
	"vanguardd/internal/retrieval"
	"vanguardd/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Built-in defaults, applied after flags and the config file.
const (
	defaultModelsDir = "~/models/llm"
	defaultDBPath    = "vanguard_brain.db"
	defaultLogLevel  = "info"
)

type options struct {
	addr      string
	modelsDir string
	dbPath    string
	cfgPath   string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vanguardd",
		Short:         "Local inference gateway for gaming guides and expert Q&A",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(optionsFrom(cmd.Flags()))
		},
	}
	addFlags(root.Flags())
	return root
}

func addFlags(fl *pflag.FlagSet) {
	fl.String("addr", "", "HTTP listen address (defaults PORT env or :8000)")
	fl.String("models-dir", defaultModelsDir, "Directory to scan for *.gguf model files")
	fl.String("db", defaultDBPath, "SQLite database path for conversation history")
	fl.String("config", "", "Optional config file (.yaml/.json/.toml); flags override it")
	fl.String("log-level", defaultLogLevel, "Log level: debug|info|warn|error")
}

// optionsFrom carries over only flags the user actually set, so an untouched
// flag default cannot shadow a config-file value.
func optionsFrom(fl *pflag.FlagSet) options {
	get := func(name string) string {
		if !fl.Changed(name) {
			return ""
		}
		v, _ := fl.GetString(name)
		return v
	}
	return options{
		addr:      get("addr"),
		modelsDir: get("models-dir"),
		dbPath:    get("db"),
		cfgPath:   get("config"),
		logLevel:  get("log-level"),
	}
}

// resolve merges flag values over file values over built-in defaults.
func resolve(opts options) (config.Config, error) {
	var cfg config.Config
	if opts.cfgPath != "" {
		var err error
		cfg, err = config.Load(opts.cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", opts.cfgPath, err)
		}
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if cfg.Addr == "" {
		if p := os.Getenv("PORT"); p != "" {
			cfg.Addr = ":" + strings.TrimPrefix(p, ":")
		} else {
			cfg.Addr = ":8000"
		}
	}
	if opts.modelsDir != "" {
		cfg.ModelsDir = opts.modelsDir
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = defaultModelsDir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	cfg.ModelsDir = config.ExpandHome(cfg.ModelsDir)
	cfg.DBPath = config.ExpandHome(cfg.DBPath)
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// loopbackBaseURL derives the agent client's OpenAI-compatible base URL from
// the listen address. Agent traffic goes back through this process's own
// /v1/chat/completions, so all synthesis runs on the one local model.
func loopbackBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return "http://127.0.0.1:8000/v1"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/v1"
}

func run(opts options) error {
	cfg, err := resolve(opts)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		ModelsDir: cfg.ModelsDir,
		Logger:    log,
	})
	defer mgr.Close()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	// The model load (and possible first-run download) happens off the request
	// path; endpoints answer 503 until it completes.
	go func() {
		if err := mgr.EnsureReady(baseCtx); err != nil {
			log.Error().Err(err).Msg("model initialization failed; serving without a model")
		}
	}()

	client := agent.NewOpenAIClient(loopbackBaseURL(cfg.Addr))
	guideProfile := orchestrator.GuideProfile()
	expertProfile := orchestrator.ExpertProfile()
	guide := orchestrator.New(guideProfile, agent.New(guideProfile.Agent, client, log), mgr, log)
	expert := orchestrator.New(expertProfile, agent.New(expertProfile.Agent, client, log), mgr, log)

	mux := httpapi.NewMux(&httpapi.Server{
		Engine: mgr,
		Store:  st,
		Search: retrieval.New(log),
		Guide:  guide,
		Expert: expert,
		Log:    log,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Str("db", cfg.DBPath).Msg("vanguardd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
