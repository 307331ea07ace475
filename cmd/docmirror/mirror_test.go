package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docmirror/docmirror/internal/config"
	"github.com/docmirror/docmirror/internal/model"
	"github.com/docmirror/docmirror/internal/report"
)

// TestNewMirrorCmd tests the mirror command creation.
func TestNewMirrorCmd(t *testing.T) {
	t.Parallel()

	cmd := NewMirrorCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "mirror" {
			t.Errorf("expected use 'mirror', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has url flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("url")
		if flag == nil {
			t.Fatal("expected url flag")
		}
		if flag.Shorthand != "u" {
			t.Errorf("expected shorthand 'u', got %q", flag.Shorthand)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
	})

	t.Run("has depth flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("depth")
		if flag == nil {
			t.Fatal("expected depth flag")
		}
		if flag.Shorthand != "d" {
			t.Errorf("expected shorthand 'd', got %q", flag.Shorthand)
		}
	})

	t.Run("has max-pages flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("max-pages")
		if flag == nil {
			t.Fatal("expected max-pages flag")
		}
		if flag.Shorthand != "p" {
			t.Errorf("expected shorthand 'p', got %q", flag.Shorthand)
		}
	})

	t.Run("has concurrency flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("concurrency")
		if flag == nil {
			t.Fatal("expected concurrency flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
	})

	t.Run("has settle flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"settle", "settle-delay", "wait-selector"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has remote-debugger flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("remote-debugger") == nil {
			t.Error("expected remote-debugger flag")
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has report format flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"json", "markdown", "report"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("does not have db-dir flag (uses XDG)", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("db-dir") != nil {
			t.Error("db-dir flag should not exist (always uses XDG data directory)")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewMirrorCmd()
		if getVerboseFlag(cmd) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		mirrorCmd, _, err := root.Find([]string{"mirror"})
		if err != nil {
			t.Fatalf("failed to find mirror command: %v", err)
		}

		if !getVerboseFlag(mirrorCmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewMirrorCmd()
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if cfg.Concurrency != config.DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", config.DefaultConcurrency, cfg.Concurrency)
		}
		if cfg.RenderTimeout != config.DefaultRenderTimeout {
			t.Errorf("expected render timeout %s, got %s", config.DefaultRenderTimeout, cfg.RenderTimeout)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir == "" {
			t.Error("expected non-empty DBDir")
		}
	})

	t.Run("builds config with url and output", func(t *testing.T) {
		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("url", "https://docs.example.com")
		_ = cmd.Flags().Set("output", "./docs")
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.RootURL != "https://docs.example.com" {
			t.Errorf("expected RootURL 'https://docs.example.com', got %q", cfg.RootURL)
		}
		if cfg.OutputDir != "./docs" {
			t.Errorf("expected OutputDir './docs', got %q", cfg.OutputDir)
		}
	})

	t.Run("builds config with custom crawl limits", func(t *testing.T) {
		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("depth", "5")
		_ = cmd.Flags().Set("max-pages", "25")
		_ = cmd.Flags().Set("max-retries", "1")
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxDepth != 5 {
			t.Errorf("expected MaxDepth 5, got %d", cfg.MaxDepth)
		}
		if cfg.MaxPages != 25 {
			t.Errorf("expected MaxPages 25, got %d", cfg.MaxPages)
		}
		if cfg.MaxRetries != 1 {
			t.Errorf("expected MaxRetries 1, got %d", cfg.MaxRetries)
		}
	})

	t.Run("builds config with settle options", func(t *testing.T) {
		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("settle", "selector")
		_ = cmd.Flags().Set("wait-selector", "main article")
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SettleMode != "selector" {
			t.Errorf("expected SettleMode 'selector', got %q", cfg.SettleMode)
		}
		if cfg.WaitSelector != "main article" {
			t.Errorf("expected WaitSelector 'main article', got %q", cfg.WaitSelector)
		}
	})

	t.Run("builds config with JSON flag", func(t *testing.T) {
		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("json", "true")
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.JSONReport {
			t.Error("expected JSONReport to be true")
		}
	})

	t.Run("builds config with valid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".docmirror")

		content := []byte(`
defaults:
  depth: 10
sites:
  docs.example.com:
    waitSelector: "div.content"
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteConfigs == nil {
			t.Fatal("expected SiteConfigs to be loaded")
		}
		if cfg.SiteConfigs.Defaults.Depth != 10 {
			t.Errorf("expected default depth 10, got %d", cfg.SiteConfigs.Defaults.Depth)
		}
		site := cfg.SiteConfigs.GetSiteConfig("docs.example.com")
		if site.WaitSelector != "div.content" {
			t.Errorf("expected waitSelector 'div.content', got %q", site.WaitSelector)
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := buildConfig(cmd); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yaml")

		if err := os.WriteFile(configPath, []byte(`{invalid yaml`), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewMirrorCmd()
		_ = cmd.Flags().Set("config", configPath)
		if _, err := buildConfig(cmd); err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})
}

// TestRunMirrorCmdValidation tests fatal configuration errors surface before
// any browser work starts.
func TestRunMirrorCmdValidation(t *testing.T) {
	t.Parallel()

	t.Run("requires url", func(t *testing.T) {
		t.Parallel()
		rootCmd := NewRootCmd()
		rootCmd.SetArgs([]string{"mirror", "--output", t.TempDir()})

		if err := rootCmd.Execute(); err == nil {
			t.Error("expected error for missing url")
		}
	})

	t.Run("requires output", func(t *testing.T) {
		t.Parallel()
		rootCmd := NewRootCmd()
		rootCmd.SetArgs([]string{"mirror", "--url", "https://docs.example.com"})

		if err := rootCmd.Execute(); err == nil {
			t.Error("expected error for missing output")
		}
	})

	t.Run("rejects conflicting report formats", func(t *testing.T) {
		t.Parallel()
		rootCmd := NewRootCmd()
		rootCmd.SetArgs([]string{
			"mirror", "--url", "https://docs.example.com",
			"--output", t.TempDir(), "--json", "--markdown",
		})

		err := rootCmd.Execute()
		if err == nil {
			t.Fatal("expected error for conflicting report formats")
		}
		if !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got: %v", err)
		}
	})

	t.Run("rejects selector mode without selector", func(t *testing.T) {
		t.Parallel()
		rootCmd := NewRootCmd()
		rootCmd.SetArgs([]string{
			"mirror", "--url", "https://docs.example.com",
			"--output", t.TempDir(), "--settle", "selector",
		})

		if err := rootCmd.Execute(); err == nil {
			t.Error("expected error for selector mode without wait-selector")
		}
	})
}

// TestHeaderTransport tests header injection on image downloads.
func TestHeaderTransport(t *testing.T) {
	t.Parallel()

	var gotUA, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newImageClient("docmirror-test/1.0", map[string]string{
		"Authorization": "Bearer tok",
	})

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != "docmirror-test/1.0" {
		t.Errorf("User-Agent = %q, want docmirror-test/1.0", gotUA)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
}

// testMirrorReport builds a small finished report for output tests.
func testMirrorReport() *model.MirrorReport {
	r := model.NewMirrorReport("https://docs.example.com/", "/tmp/mirror")
	r.FinishedAt = r.StartedAt.Add(time.Minute)
	r.Results = []model.CrawlResult{
		{
			URL:          "https://docs.example.com/",
			Title:        "Home",
			MarkdownPath: "index.md",
			Status:       model.StatusSuccess,
		},
		{
			URL:          "https://docs.example.com/guide/intro",
			Title:        "Introduction",
			MarkdownPath: "guide/intro.md",
			Status:       model.StatusSuccess,
		},
	}
	return r
}

// TestWriteIndexFile tests index generation in the output directory.
func TestWriteIndexFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	if err := writeIndexFile(tmpDir, testMirrorReport()); err != nil {
		t.Fatalf("writeIndexFile() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, report.IndexFileName))
	if err != nil {
		t.Fatalf("failed to read index: %v", err)
	}
	if !strings.Contains(string(content), "# Documentation Index") {
		t.Errorf("index missing heading:\n%s", content)
	}
	if !strings.Contains(string(content), "guide/intro.md") {
		t.Errorf("index missing page link:\n%s", content)
	}
}

// TestOutputReport tests report writing in the supported formats.
func TestOutputReport(t *testing.T) {
	t.Run("writes markdown report into output dir", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfg := &config.Config{
			OutputDir:      tmpDir,
			MarkdownReport: true,
		}

		if err := outputReport(cfg, testMirrorReport()); err != nil {
			t.Fatalf("outputReport() error = %v", err)
		}

		content, err := os.ReadFile(filepath.Join(tmpDir, defaultMarkdownReportName))
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Mirror Report") {
			t.Errorf("markdown report missing heading:\n%s", content)
		}
	})

	t.Run("writes JSON report to explicit path", func(t *testing.T) {
		tmpDir := t.TempDir()
		reportPath := filepath.Join(tmpDir, "nested", "run.json")
		cfg := &config.Config{
			OutputDir:  tmpDir,
			JSONReport: true,
			ReportFile: reportPath,
		}

		if err := outputReport(cfg, testMirrorReport()); err != nil {
			t.Fatalf("outputReport() error = %v", err)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), `"version"`) {
			t.Errorf("JSON report missing version wrapper:\n%s", content)
		}
	})

	t.Run("stdout-only summary needs no files", func(t *testing.T) {
		cfg := &config.Config{OutputDir: t.TempDir()}
		if err := outputReport(cfg, testMirrorReport()); err != nil {
			t.Fatalf("outputReport() error = %v", err)
		}
	})
}
