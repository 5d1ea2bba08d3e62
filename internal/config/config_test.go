package config

import (
	"os"
	"path/filepath"
	"testing"

	stderrors "errors"

	interrors "github.com/gentleman-programming/gentleman-signals-state-manager/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gentleman.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Point at a directory with no config file.
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	if cfg.Addr != DefaultAddr {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Persistence.Mode != PersistNone {
		t.Errorf("persistence mode = %q", cfg.Persistence.Mode)
	}
	if cfg.Persistence.DebounceMS != DefaultDebounceMS {
		t.Errorf("debounce = %d", cfg.Persistence.DebounceMS)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
		"addr": "0.0.0.0:7070",
		"state": {"counter": 0, "user": "guest"},
		"transientKeys": ["cursor"],
		"persistence": {"mode": "file", "path": "state.json", "debounceMs": 250}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != "0.0.0.0:7070" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.State["user"] != "guest" {
		t.Errorf("state = %v", cfg.State)
	}
	if len(cfg.TransientKeys) != 1 || cfg.TransientKeys[0] != "cursor" {
		t.Errorf("transientKeys = %v", cfg.TransientKeys)
	}
	if cfg.Persistence.Mode != PersistFile || cfg.Persistence.Path != "state.json" {
		t.Errorf("persistence = %+v", cfg.Persistence)
	}
	if cfg.Persistence.DebounceMS != 250 {
		t.Errorf("debounce = %d", cfg.Persistence.DebounceMS)
	}
	// Unset fields still get defaults.
	if cfg.MetricsNamespace != DefaultMetricsNamespace {
		t.Errorf("metricsNamespace = %q", cfg.MetricsNamespace)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for explicit missing file")
	}

	var serr *interrors.StateError
	if !stderrors.As(err, &serr) || serr.Code != "E101" {
		t.Errorf("expected E101, got %v", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"addr": }`)

	_, err := Load(path)
	var serr *interrors.StateError
	if !stderrors.As(err, &serr) || serr.Code != "E102" {
		t.Errorf("expected E102, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"addr": "localhost:6060"}`)

	t.Setenv("GENTLEMAN_ADDR", "localhost:9999")
	t.Setenv("GENTLEMAN_PERSIST_MODE", "file")
	t.Setenv("GENTLEMAN_PERSIST_PATH", "/tmp/state.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != "localhost:9999" {
		t.Errorf("env override lost, addr = %q", cfg.Addr)
	}
	if cfg.Persistence.Mode != PersistFile || cfg.Persistence.Path != "/tmp/state.json" {
		t.Errorf("persistence = %+v", cfg.Persistence)
	}
}

func TestValidateRejectsBadAddr(t *testing.T) {
	path := writeConfig(t, `{"addr": "no-port"}`)

	_, err := Load(path)
	var serr *interrors.StateError
	if !stderrors.As(err, &serr) || serr.Code != "E104" {
		t.Errorf("expected E104, got %v", err)
	}
}

func TestValidateRejectsBadPersistence(t *testing.T) {
	cases := map[string]string{
		"unknown mode":   `{"persistence": {"mode": "tape"}}`,
		"file sans path": `{"persistence": {"mode": "file"}}`,
		"s3 sans bucket": `{"persistence": {"mode": "s3"}}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			var serr *interrors.StateError
			if !stderrors.As(err, &serr) || serr.Code != "E103" {
				t.Errorf("expected E103, got %v", err)
			}
		})
	}
}
