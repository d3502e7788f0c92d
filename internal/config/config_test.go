package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "fidscope.yaml")
	cfg := Default()
	cfg.Providers.Neynar.APIKey = "nk"
	cfg.Watch.FIDs = []int64{3, 194}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Providers.Neynar.APIKey != "nk" {
		t.Fatalf("api key lost: %+v", got.Providers.Neynar)
	}
	if len(got.Watch.FIDs) != 2 || got.Watch.FIDs[1] != 194 {
		t.Fatalf("watchlist lost: %v", got.Watch.FIDs)
	}
	if got.Server.Addr != ":8080" {
		t.Fatalf("server addr: %s", got.Server.Addr)
	}
}

func TestResolveEnvFillsMissingKeys(t *testing.T) {
	t.Setenv("NEYNAR_API_KEY", "envkey")
	t.Setenv("QUOTIENT_API_KEY", "qkey")

	cfg := Default()
	cfg.Providers.Quotient.APIKey = "explicit"
	cfg.ResolveEnv()
	if cfg.Providers.Neynar.APIKey != "envkey" {
		t.Fatalf("env fallback not applied: %q", cfg.Providers.Neynar.APIKey)
	}
	if cfg.Providers.Quotient.APIKey != "explicit" {
		t.Fatalf("explicit key overwritten: %q", cfg.Providers.Quotient.APIKey)
	}
}

func TestEnrichmentTimeoutDefault(t *testing.T) {
	if d := (EnrichmentConfig{}).Timeout(); d != 3*time.Second {
		t.Fatalf("default timeout: %v", d)
	}
	if d := (EnrichmentConfig{TimeoutMS: 250}).Timeout(); d != 250*time.Millisecond {
		t.Fatalf("configured timeout: %v", d)
	}
}
