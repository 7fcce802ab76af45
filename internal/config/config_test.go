package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional; these tests fail otherwise.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default DebounceDelay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.DebounceDelay != time.Second {
			t.Errorf("expected DebounceDelay to be 1s, got %v", cfg.DebounceDelay)
		}
	})

	t.Run("default HighlightDuration is 3 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.HighlightDuration != 3*time.Second {
			t.Errorf("expected HighlightDuration to be 3s, got %v", cfg.HighlightDuration)
		}
	})

	t.Run("default MaxNameDistance is 300", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxNameDistance != 300 {
			t.Errorf("expected MaxNameDistance to be 300, got %d", cfg.MaxNameDistance)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize to be 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir to be %s, got %s", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("API is disabled by default", func(t *testing.T) {
		t.Parallel()
		if cfg.Listen != "" {
			t.Errorf("expected empty Listen, got %q", cfg.Listen)
		}
	})
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"team.html"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid config returns nil", mutate: func(*Config) {}},
		{name: "multiple targets is valid", mutate: func(c *Config) { c.Targets = append(c.Targets, "https://example.com") }},
		{name: "empty targets returns ErrNoTarget", mutate: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "zero timeout returns ErrInvalidTimeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative timeout returns ErrInvalidTimeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "zero batch size returns ErrInvalidBatchSize", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "zero debounce returns ErrInvalidDebounce", mutate: func(c *Config) { c.DebounceDelay = 0 }, wantErr: ErrInvalidDebounce},
		{name: "hour-long debounce returns ErrInvalidDebounce", mutate: func(c *Config) { c.DebounceDelay = time.Hour }, wantErr: ErrInvalidDebounce},
		{name: "zero highlight is valid", mutate: func(c *Config) { c.HighlightDuration = 0 }},
		{name: "negative highlight returns ErrInvalidHighlight", mutate: func(c *Config) { c.HighlightDuration = -time.Second }, wantErr: ErrInvalidHighlight},
		{name: "zero name distance returns ErrInvalidNameDistance", mutate: func(c *Config) { c.MaxNameDistance = 0 }, wantErr: ErrInvalidNameDistance},
		{name: "tiny poll interval returns ErrInvalidPollInterval", mutate: func(c *Config) { c.PollInterval = time.Millisecond }, wantErr: ErrInvalidPollInterval},
		{name: "negative rate returns ErrInvalidRate", mutate: func(c *Config) { c.RequestsPerSecond = -1 }, wantErr: ErrInvalidRate},
		{name: "negative body size returns ErrInvalidMaxBodySize", mutate: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "listen address is valid", mutate: func(c *Config) { c.Listen = "127.0.0.1:8686" }},
		{name: "malformed listen returns ErrInvalidListen", mutate: func(c *Config) { c.Listen = "localhost" }, wantErr: ErrInvalidListen},
		{
			name:    "json and markdown both enabled returns ErrConflictingReportFormats",
			mutate:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name: "invalid site section returns ErrInvalidSiteConfig",
			mutate: func(c *Config) {
				c.SiteConfigs = &File{Sites: map[string]SiteConfig{"example.com": {MaxNameDistance: -5}}}
			},
			wantErr: ErrInvalidSiteConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestSiteKey tests target to site key mapping.
func TestSiteKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		want   string
	}{
		{"https://Example.com/team?x=1", "example.com"},
		{"http://example.com:8080/", "example.com"},
		{"pages/../pages/team.html", "pages/team.html"},
		{"file:///tmp/team.html", "/tmp/team.html"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()
			if got := SiteKey(tt.target); got != tt.want {
				t.Errorf("SiteKey(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

// TestFileGetSiteConfig tests merging of defaults and site sections.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	newFile := func() *File {
		return &File{
			Defaults: SiteConfig{
				Headers:          map[string]string{"Accept-Language": "en"},
				ContainerClasses: []string{"member"},
				MaxNameDistance:  200,
			},
			Sites: map[string]SiteConfig{
				"example.com": {
					Cookie:           "sid=1",
					Headers:          map[string]string{"Accept-Language": "de", "X-Team": "a"},
					ContainerClasses: []string{"person"},
				},
			},
		}
	}

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		got := newFile().GetSiteConfig("https://other.org")
		if got.MaxNameDistance != 200 || got.Cookie != "" {
			t.Errorf("unexpected config %+v", got)
		}
	})

	t.Run("merges site over defaults", func(t *testing.T) {
		t.Parallel()

		got := newFile().GetSiteConfig("https://example.com/about")
		if got.Cookie != "sid=1" {
			t.Errorf("expected cookie, got %q", got.Cookie)
		}
		if got.MaxNameDistance != 200 {
			t.Errorf("expected default distance to apply, got %d", got.MaxNameDistance)
		}
		if got.Headers["Accept-Language"] != "de" || got.Headers["X-Team"] != "a" {
			t.Errorf("unexpected headers %v", got.Headers)
		}
		if !slices.Equal(got.ContainerClasses, []string{"member", "person"}) {
			t.Errorf("unexpected container classes %v", got.ContainerClasses)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		f := newFile()
		_ = f.GetSiteConfig("https://example.com")
		if f.Defaults.Headers["Accept-Language"] != "en" || len(f.Defaults.Headers) != 1 {
			t.Errorf("defaults were modified: %v", f.Defaults.Headers)
		}
		if len(f.Defaults.ContainerClasses) != 1 {
			t.Errorf("default classes were modified: %v", f.Defaults.ContainerClasses)
		}
	})

	t.Run("config without file uses global distance", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if cfg.NameDistanceFor("team.html") != DefaultMaxNameDistance {
			t.Errorf("expected default distance, got %d", cfg.NameDistanceFor("team.html"))
		}
		cfg.SiteConfigs = newFile()
		if cfg.NameDistanceFor("team.html") != 200 {
			t.Errorf("expected file default distance, got %d", cfg.NameDistanceFor("team.html"))
		}
	})
}

// TestLoadConfigFile tests loading the YAML configuration file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		return path
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := write(t, `
defaults:
  maxNameDistance: 250
  containerClasses: [member]
sites:
  example.com:
    cookie: "sid=1"
    headers:
      X-Team: a
`)
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if cf.Defaults.MaxNameDistance != 250 {
			t.Errorf("expected 250, got %d", cf.Defaults.MaxNameDistance)
		}
		site := cf.GetSiteConfig("https://example.com")
		if site.Cookie != "sid=1" || site.Headers["X-Team"] != "a" {
			t.Errorf("unexpected site config %+v", site)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(write(t, "sites: [unclosed")); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("rejects empty container class", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(write(t, "defaults:\n  containerClasses: [\"\"]\n"))
		if !errors.Is(err, ErrInvalidSiteConfig) {
			t.Errorf("expected ErrInvalidSiteConfig, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(write(t, "defaults:\n  cookie: a=b\n"))
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites to be initialized")
		}
	})
}

// TestFindConfigFile tests configuration file discovery.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty, got %s", got)
		}
	})
}

// TestXDGDirs tests XDG directory helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{XDGDataDir(), XDGConfigDir()} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("expected %s to end with %s", dir, AppName)
		}
	}
}
