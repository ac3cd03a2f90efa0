package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flowq.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
cli:
  model: claude-sonnet-4-20250514
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CLI.Model != "claude-sonnet-4-20250514" {
		t.Fatalf("model = %q, want override applied", cfg.CLI.Model)
	}
	if cfg.CLI.ReadTimeout != 5*time.Minute {
		t.Fatalf("ReadTimeout = %v, want default preserved", cfg.CLI.ReadTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("Logging.Format = %q, want default json", cfg.Logging.Format)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("FLOWQ_TEST_KEY", "sk-ant-test-value")
	path := writeConfig(t, `
providers:
  anthropic:
    api_key: ${FLOWQ_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant-test-value" {
		t.Fatalf("APIKey = %q, want expanded env var", cfg.Providers.Anthropic.APIKey)
	}
}

func TestLoadOverridesCLILists(t *testing.T) {
	path := writeConfig(t, `
cli:
  allowed_tools: ["Read", "Write"]
  disallowed_tools: ["Bash"]
  add_dirs: ["/tmp/work"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CLI.AllowedTools) != 2 || cfg.CLI.AllowedTools[0] != "Read" {
		t.Fatalf("AllowedTools = %v", cfg.CLI.AllowedTools)
	}
	if len(cfg.CLI.DisallowedTools) != 1 || cfg.CLI.DisallowedTools[0] != "Bash" {
		t.Fatalf("DisallowedTools = %v", cfg.CLI.DisallowedTools)
	}
	if len(cfg.CLI.AddDirs) != 1 || cfg.CLI.AddDirs[0] != "/tmp/work" {
		t.Fatalf("AddDirs = %v", cfg.CLI.AddDirs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "cli:\n  model: claude-3-haiku-20240307\n")

	results := make(chan Config, 4)
	errs := make(chan error, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(ctx, path, func(cfg Config, err error) {
		if err != nil {
			errs <- err
			return
		}
		results <- cfg
	}, WatchOptions{Debounce: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("cli:\n  model: claude-sonnet-4-20250514\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-results:
		if cfg.CLI.Model != "claude-sonnet-4-20250514" {
			t.Fatalf("reloaded model = %q", cfg.CLI.Model)
		}
	case err := <-errs:
		t.Fatalf("reload error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
