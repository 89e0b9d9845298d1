package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoopbackBaseURL(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{":8000", "http://127.0.0.1:8000/v1"},
		{"0.0.0.0:9000", "http://127.0.0.1:9000/v1"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/v1"},
		{"[::]:8000", "http://127.0.0.1:8000/v1"},
		{"garbage", "http://127.0.0.1:8000/v1"},
	}
	for _, c := range cases {
		if got := loopbackBaseURL(c.addr); got != c.want {
			t.Fatalf("loopbackBaseURL(%q) = %q, want %q", c.addr, got, c.want)
		}
	}
}

func parseOptions(t *testing.T, args ...string) options {
	t.Helper()
	fl := pflag.NewFlagSet("vanguardd", pflag.ContinueOnError)
	addFlags(fl)
	if err := fl.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return optionsFrom(fl)
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := resolve(parseOptions(t))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("default addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "vanguard_brain.db" || cfg.LogLevel != "info" {
		t.Fatalf("built-in defaults not applied: %+v", cfg)
	}

	t.Setenv("PORT", "9001")
	cfg, err = resolve(parseOptions(t))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9001" {
		t.Fatalf("PORT env not honored: %q", cfg.Addr)
	}

	// Explicit flag beats the environment.
	cfg, err = resolve(parseOptions(t, "--addr", ":7000"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("flag not honored: %q", cfg.Addr)
	}
}

func TestResolveConfigFile(t *testing.T) {
	t.Setenv("PORT", "")
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte("addr: :6060\nmodels_dir: /from/file\ndb_path: file.db\nlog_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Untouched flag defaults must not shadow file values.
	cfg, err := resolve(parseOptions(t, "--config", p))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":6060" || cfg.ModelsDir != "/from/file" || cfg.DBPath != "file.db" || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	// Flags the user actually set override the file.
	cfg, err = resolve(parseOptions(t, "--config", p, "--addr", ":6061", "--db", "flag.db"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":6061" || cfg.DBPath != "flag.db" || cfg.ModelsDir != "/from/file" {
		t.Fatalf("flag precedence broken: %+v", cfg)
	}

	// Setting a flag to its default value still counts as setting it.
	cfg, err = resolve(parseOptions(t, "--config", p, "--log-level", "info"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("explicit flag not honored: %q", cfg.LogLevel)
	}

	if _, err := resolve(parseOptions(t, "--config", "/no/such/file.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
