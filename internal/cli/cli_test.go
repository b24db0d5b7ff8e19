package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")
	defer SetVersion("dev", "", "")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}

	want := "catalog 1.0.0\ncommit: abc123\nbuilt: 2024-01-01\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func configCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addBuildFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("CATALOG_GITHUB_TOKEN", "")

	cfg, err := loadConfig(configCommand(t), "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BatchSize != 5 || cfg.ProgressEvery != 50 || cfg.MaxAttempts != 3 {
		t.Errorf("unexpected counts: %+v", cfg)
	}
	if cfg.Timeout != 10*time.Second || cfg.IndexTimeout != 60*time.Second {
		t.Errorf("unexpected timeouts: %s %s", cfg.Timeout, cfg.IndexTimeout)
	}
	if cfg.BaseDelay != time.Second || cfg.MaxDelay != 30*time.Second {
		t.Errorf("unexpected delays: %s %s", cfg.BaseDelay, cfg.MaxDelay)
	}
	if cfg.RateLimitWait != 60*time.Second || cfg.RateLimitMargin != time.Second {
		t.Errorf("unexpected rate limit settings: %s %s", cfg.RateLimitWait, cfg.RateLimitMargin)
	}
	if cfg.BreakerThreshold != 5 || cfg.CacheTTL != 6*time.Hour || cfg.ExcludeUnverified {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Output != "registry.json" || cfg.GitHubToken != "" {
		t.Errorf("unexpected output/token: %q %q", cfg.Output, cfg.GitHubToken)
	}
}

func TestLoadConfigLayering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.yaml")
	content := "batch-size: 8\nmax-attempts: 4\noutput: from-file.json\nrate-limit-wait: 5s\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CATALOG_MAX_ATTEMPTS", "6")
	t.Setenv("CATALOG_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "gh-token")

	cfg, err := loadConfig(configCommand(t, "--output", "from-flag.json", "--exclude-unverified"), file)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BatchSize != 8 {
		t.Errorf("batch-size = %d, want 8 from file", cfg.BatchSize)
	}
	if cfg.MaxAttempts != 6 {
		t.Errorf("max-attempts = %d, want 6 from env", cfg.MaxAttempts)
	}
	if cfg.Output != "from-flag.json" {
		t.Errorf("output = %q, want flag value", cfg.Output)
	}
	if cfg.RateLimitWait != 5*time.Second {
		t.Errorf("rate-limit-wait = %s, want 5s", cfg.RateLimitWait)
	}
	if !cfg.ExcludeUnverified {
		t.Error("exclude-unverified should be set by flag")
	}
	if cfg.GitHubToken != "gh-token" {
		t.Errorf("token = %q, want GITHUB_TOKEN value", cfg.GitHubToken)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	if _, err := loadConfig(configCommand(t, "--batch-size=-1"), ""); err == nil {
		t.Error("expected error for negative batch size")
	}
	if _, err := loadConfig(configCommand(t), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"", "text", "json", "logfmt"} {
		var buf bytes.Buffer
		l, err := newLogger(&buf, charmlog.InfoLevel, format)
		if err != nil {
			t.Fatalf("newLogger(%q): %v", format, err)
		}
		l.Info("hello", "k", "v")
		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("format %q: output %q missing message", format, buf.String())
		}
	}
	if _, err := newLogger(&bytes.Buffer{}, charmlog.InfoLevel, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("expected default logger")
	}
	l := charmlog.New(&bytes.Buffer{})
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("expected attached logger")
	}
}

func TestBuildCommand(t *testing.T) {
	idx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"libraries": [
		  {"name": "Foo", "version": "1.0.0", "repository": "https://github.com/a/foo"},
		  {"name": "Foo", "version": "2.1.3", "repository": "https://github.com/a/foo"}
		]}`))
	}))
	defer idx.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stargazers_count": 100}`))
	}))
	defer api.Close()

	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("CATALOG_GITHUB_TOKEN", "")
	dir := t.TempDir()
	out := filepath.Join(dir, "registry.json")

	for _, args := range [][]string{
		{"--index-url", idx.URL, "--api-url", api.URL, "-o", out, "--cache-dir", filepath.Join(dir, "cache")},
		{"build", "--index-url", idx.URL, "--api-url", api.URL, "-o", out, "--log-format", "json"},
	} {
		_ = os.Remove(out)

		root := NewRootCommand()
		var logs bytes.Buffer
		root.SetArgs(args)
		root.SetErr(&logs)
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v", args, err)
		}

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("%v: registry not written: %v", args, err)
		}
		var reg struct {
			TotalLibraries int `json:"totalLibraries"`
			Libraries      []struct {
				Name  string `json:"name"`
				Stars int    `json:"stars"`
			} `json:"libraries"`
		}
		if err := json.Unmarshal(data, &reg); err != nil {
			t.Fatalf("%v: invalid registry: %v", args, err)
		}
		if reg.TotalLibraries != 1 || reg.Libraries[0].Name != "Foo" || reg.Libraries[0].Stars != 100 {
			t.Errorf("%v: unexpected registry %+v", args, reg)
		}
	}
}

func TestBuildCommandFailsOnBadIndex(t *testing.T) {
	idx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nope": true}`))
	}))
	defer idx.Close()

	out := filepath.Join(t.TempDir(), "registry.json")
	root := NewRootCommand()
	root.SetArgs([]string{"--index-url", idx.URL, "-o", out})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no registry should be written when the index is invalid")
	}
}

func TestExecuteLogsFailureWithSubcommandLogger(t *testing.T) {
	idx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nope": true}`))
	}))
	defer idx.Close()

	for _, args := range [][]string{
		{"build", "--log-format", "json", "--index-url", idx.URL, "-o", "-"},
		{"--log-format", "json", "--index-url", idx.URL, "-o", "-"},
	} {
		root := NewRootCommand()
		var logs bytes.Buffer
		root.SetArgs(args)
		root.SetErr(&logs)

		if err := execute(context.Background(), root); err == nil {
			t.Fatalf("%v: expected error", args)
		}

		var found bool
		for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
			var rec map[string]any
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				t.Fatalf("%v: non-JSON log line %q", args, line)
			}
			if rec["msg"] == "catalog failed" && rec["level"] == "error" {
				found = true
			}
		}
		if !found {
			t.Errorf("%v: failure not logged as JSON:\n%s", args, logs.String())
		}
	}
}
