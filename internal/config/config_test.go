package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := NewConfig()

	if c.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", c.Concurrency, DefaultConcurrency)
	}
	if c.RenderTimeout != DefaultRenderTimeout {
		t.Errorf("RenderTimeout = %v, want %v", c.RenderTimeout, DefaultRenderTimeout)
	}
	if c.MaxImageSize != DefaultMaxImageSize {
		t.Errorf("MaxImageSize = %d, want %d", c.MaxImageSize, DefaultMaxImageSize)
	}
	if c.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d, want %d", c.MaxPages, DefaultMaxPages)
	}
	if c.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", c.MaxDepth, DefaultMaxDepth)
	}
	if c.SettleMode != "delay" {
		t.Errorf("SettleMode = %q, want delay", c.SettleMode)
	}
}

// TestValidate covers every validation rule.
func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := NewConfig()
		c.RootURL = "https://docs.example.com"
		c.OutputDir = "./mirror"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "missing root URL",
			mutate:  func(c *Config) { c.RootURL = "" },
			wantErr: ErrNoRootURL,
		},
		{
			name:    "missing output dir",
			mutate:  func(c *Config) { c.OutputDir = "" },
			wantErr: ErrNoOutputDir,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "zero render timeout",
			mutate:  func(c *Config) { c.RenderTimeout = 0 },
			wantErr: ErrInvalidRenderTimeout,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: ErrInvalidMaxRetries,
		},
		{
			name:    "negative image size",
			mutate:  func(c *Config) { c.MaxImageSize = -1 },
			wantErr: ErrInvalidMaxImageSize,
		},
		{
			name: "conflicting report formats",
			mutate: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
		{
			name: "selector mode without selector",
			mutate: func(c *Config) {
				c.SettleMode = "selector"
				c.WaitSelector = ""
			},
			wantErr: ErrSelectorRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := valid()
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFile verifies YAML parsing and site lookup.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("full config file", func(t *testing.T) {
		t.Parallel()

		content := `
defaults:
  depth: 2
  headers:
    X-Team: docs
sites:
  docs.example.com:
    waitSelector: ".markdown-body"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/changelog/*"
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sc := cf.GetSiteConfig("docs.example.com")
		if sc.WaitSelector != ".markdown-body" {
			t.Errorf("WaitSelector = %q, want .markdown-body", sc.WaitSelector)
		}
		if sc.Depth != 2 {
			t.Errorf("Depth = %d, want 2 (inherited from defaults)", sc.Depth)
		}
		if sc.Headers["Authorization"] != "Bearer token" {
			t.Errorf("site header missing: %v", sc.Headers)
		}
		if sc.Headers["X-Team"] != "docs" {
			t.Errorf("default header not merged: %v", sc.Headers)
		}
		if len(sc.IgnorePatterns) != 1 || sc.IgnorePatterns[0] != "/changelog/*" {
			t.Errorf("unexpected ignore patterns: %v", sc.IgnorePatterns)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		content := "defaults:\n  depth: 5\n"
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := cf.GetSiteConfig("other.example.com").Depth; got != 5 {
			t.Errorf("Depth = %d, want 5", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites: ["), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error for invalid YAML")
		}
	})
}

// TestResolvedHeaders verifies the Cookie shorthand folds into headers.
func TestResolvedHeaders(t *testing.T) {
	t.Parallel()

	t.Run("cookie becomes header", func(t *testing.T) {
		t.Parallel()
		sc := SiteConfig{
			Headers: map[string]string{"Authorization": "Bearer tok"},
			Cookie:  "session=abc",
		}
		headers := sc.ResolvedHeaders()
		if headers["Cookie"] != "session=abc" {
			t.Errorf("Cookie header = %q, want session=abc", headers["Cookie"])
		}
		if headers["Authorization"] != "Bearer tok" {
			t.Errorf("Authorization header = %q, want Bearer tok", headers["Authorization"])
		}
		// The original map is left untouched.
		if _, ok := sc.Headers["Cookie"]; ok {
			t.Error("ResolvedHeaders mutated the source headers map")
		}
	})

	t.Run("no cookie passes headers through", func(t *testing.T) {
		t.Parallel()
		sc := SiteConfig{Headers: map[string]string{"X-Custom": "1"}}
		headers := sc.ResolvedHeaders()
		if headers["X-Custom"] != "1" {
			t.Errorf("X-Custom header = %q, want 1", headers["X-Custom"])
		}
		if _, ok := headers["Cookie"]; ok {
			t.Error("unexpected Cookie header")
		}
	})
}

// TestFindConfigFile verifies explicit-path resolution.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile(%q) = %q, want the path back", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}

// TestRenderTimeoutUnits guards against accidental unit changes in defaults.
func TestRenderTimeoutUnits(t *testing.T) {
	t.Parallel()

	if DefaultRenderTimeout < 10*time.Second {
		t.Errorf("DefaultRenderTimeout = %v, suspiciously short for browser rendering", DefaultRenderTimeout)
	}
	if DefaultSettleDelay > 10*time.Second {
		t.Errorf("DefaultSettleDelay = %v, suspiciously long", DefaultSettleDelay)
	}
}
