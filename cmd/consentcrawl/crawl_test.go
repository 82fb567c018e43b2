package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/config"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [url...]" {
			t.Errorf("expected use 'crawl [url...]', got %q", cmd.Use)
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

	t.Run("has file flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("file")
		if flag == nil {
			t.Fatal("expected file flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})

	t.Run("has cmp flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("cmp") == nil {
			t.Fatal("expected cmp flag")
		}
	})

	t.Run("headless defaults to true", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("headless")
		if flag == nil {
			t.Fatal("expected headless flag")
		}
		if flag.DefValue != "true" {
			t.Errorf("expected default 'true', got %q", flag.DefValue)
		}
	})

	t.Run("has nav-timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("nav-timeout")
		if flag == nil {
			t.Fatal("expected nav-timeout flag")
		}
		if flag.DefValue != config.DefaultNavigationTimeout.String() {
			t.Errorf("expected default %q, got %q",
				config.DefaultNavigationTimeout.String(), flag.DefValue)
		}
	})

	t.Run("has output format flags", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("json") == nil {
			t.Error("expected json flag")
		}
		if cmd.Flags().Lookup("markdown") == nil {
			t.Error("expected markdown flag")
		}
	})
}

// parseCrawlFlags builds a crawl command and parses the given flags.
func parseCrawlFlags(t *testing.T, flags ...string) ([]string, *config.Config, config.TargetSources, error) {
	t.Helper()

	cmd := NewCrawlCmd()
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	args := cmd.Flags().Args()
	cfg, sources, err := buildConfig(cmd, args)
	return args, cfg, sources, err
}

// TestBuildConfig tests configuration construction from flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults without flags", func(t *testing.T) {
		t.Parallel()

		_, cfg, sources, err := parseCrawlFlags(t)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.NavigationTimeout != config.DefaultNavigationTimeout {
			t.Errorf("NavigationTimeout = %v, want default", cfg.NavigationTimeout)
		}
		if !cfg.Headless {
			t.Error("Headless = false, want true")
		}
		if cfg.CMP != model.CMPNone {
			t.Errorf("CMP = %v, want CMPNone", cfg.CMP)
		}
		if len(sources.URLs) != 0 {
			t.Errorf("URLs = %v, want empty", sources.URLs)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		_, cfg, sources, err := parseCrawlFlags(t,
			"--url", "https://example.com",
			"--cmp", "onetrust",
			"--headless=false",
			"--nav-timeout", "90s",
			"--retries", "0",
			"--assume-http",
		)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if len(sources.URLs) != 1 || sources.URLs[0] != "https://example.com" {
			t.Errorf("URLs = %v, want the --url entry", sources.URLs)
		}
		if cfg.CMP != model.CMPOneTrust {
			t.Errorf("CMP = %v, want CMPOneTrust", cfg.CMP)
		}
		if cfg.Headless {
			t.Error("Headless = true, want false")
		}
		if cfg.NavigationTimeout != 90*time.Second {
			t.Errorf("NavigationTimeout = %v, want 90s", cfg.NavigationTimeout)
		}
		if cfg.FetchRetries != 0 {
			t.Errorf("FetchRetries = %d, want 0", cfg.FetchRetries)
		}
		if !cfg.AssumeHTTP {
			t.Error("AssumeHTTP = false, want true")
		}
	})

	t.Run("positional arguments become targets", func(t *testing.T) {
		t.Parallel()

		_, _, sources, err := parseCrawlFlags(t,
			"--url", "https://a.example", "https://b.example")
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if len(sources.URLs) != 2 {
			t.Fatalf("len(URLs) = %d, want 2", len(sources.URLs))
		}
		if sources.URLs[1] != "https://b.example" {
			t.Errorf("URLs[1] = %q, want the positional argument", sources.URLs[1])
		}
	})

	t.Run("unknown cmp rejected", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := parseCrawlFlags(t, "--cmp", "quantcast")
		if !errors.Is(err, config.ErrUnknownCMP) {
			t.Errorf("buildConfig() error = %v, want ErrUnknownCMP", err)
		}
	})

	t.Run("explicit missing config file rejected", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "absent.yaml")
		_, _, _, err := parseCrawlFlags(t, "--config", missing)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("buildConfig() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("config file values applied and flags win", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".consentcrawl")
		content := "navigationTimeout: 45s\nfetchRetries: 7\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		_, cfg, _, err := parseCrawlFlags(t, "--config", path, "--retries", "1")
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.NavigationTimeout != 45*time.Second {
			t.Errorf("NavigationTimeout = %v, want the file value 45s", cfg.NavigationTimeout)
		}
		if cfg.FetchRetries != 1 {
			t.Errorf("FetchRetries = %d, want the flag value 1", cfg.FetchRetries)
		}
	})
}
