package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures provider credentials, enrichment policy, the HTTP server, and
// local storage.
type Config struct {
	Providers  ProvidersConfig  `yaml:"providers"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ProvidersConfig holds one entry per upstream reputation provider. A missing
// API key disables the provider; scoring degrades instead of failing.
type ProvidersConfig struct {
	Neynar   ProviderConfig `yaml:"neynar"`
	Talent   ProviderConfig `yaml:"talent"`
	OpenRank ProviderConfig `yaml:"openrank"`
	Quotient ProviderConfig `yaml:"quotient"`
	Dune     ProviderConfig `yaml:"dune"`
}

type ProviderConfig struct {
	// API key. If empty, read from the provider's env var
	// (NEYNAR_API_KEY, TALENT_PROTOCOL_API_KEY, QUOTIENT_API_KEY, DUNE_API_KEY).
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

type EnrichmentConfig struct {
	// Per-provider timeout for optional enrichment calls, in milliseconds.
	TimeoutMS int `yaml:"timeoutMS"`
	// Recent casts fetched per account when sampling activity.
	CastSample int `yaml:"castSample"`
}

// Timeout returns the enrichment timeout as a duration.
func (e EnrichmentConfig) Timeout() time.Duration {
	if e.TimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

// WatchConfig drives the periodic rescan job.
type WatchConfig struct {
	FIDs            []int64 `yaml:"fids"`
	IntervalMinutes int     `yaml:"intervalMinutes"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Providers: ProvidersConfig{
			Neynar:   ProviderConfig{BaseURL: "https://api.neynar.com/v2/farcaster"},
			Talent:   ProviderConfig{BaseURL: "https://api.talentprotocol.com/api/v2"},
			OpenRank: ProviderConfig{BaseURL: "https://graph.cast.k3l.io"},
			Quotient: ProviderConfig{BaseURL: "https://api.quotient.social"},
			Dune:     ProviderConfig{BaseURL: "https://api.dune.com/api"},
		},
		Enrichment: EnrichmentConfig{TimeoutMS: 3000, CastSample: 10},
		Server:     ServerConfig{Addr: ":8080"},
		Storage:    StorageConfig{DBPath: "./fidscope.db"},
		Watch:      WatchConfig{IntervalMinutes: 60},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Providers.Neynar.APIKey == "" {
		c.Providers.Neynar.APIKey = os.Getenv("NEYNAR_API_KEY")
	}
	if c.Providers.Talent.APIKey == "" {
		c.Providers.Talent.APIKey = os.Getenv("TALENT_PROTOCOL_API_KEY")
	}
	if c.Providers.Quotient.APIKey == "" {
		c.Providers.Quotient.APIKey = os.Getenv("QUOTIENT_API_KEY")
	}
	if c.Providers.Dune.APIKey == "" {
		c.Providers.Dune.APIKey = os.Getenv("DUNE_API_KEY")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
