// Package config loads the geoserver YAML configuration with defaults and
// validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "24h" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Triangulation TriangulationConfig `yaml:"triangulation"`
	Correlation   CorrelationConfig   `yaml:"correlation"`
	TileCache     TileCacheConfig     `yaml:"tile_cache"`
	Imagery       ImageryConfig       `yaml:"imagery"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	MetricsAddr     string   `yaml:"metrics_addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type TriangulationConfig struct {
	DefaultDistanceM float64 `yaml:"default_distance_m"`
	MaxDistanceM     float64 `yaml:"max_distance_m"`
	SpreadScaleM     float64 `yaml:"spread_scale_m"`
}

type CorrelationConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Zoom                int     `yaml:"zoom"`
	MetersPerPixel      float64 `yaml:"meters_per_pixel"`
}

type TileCacheConfig struct {
	TTL          Duration `yaml:"ttl"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
	Dir          string   `yaml:"dir"`
}

// ImageryConfig points at the external reference-tile provider. The API key
// is read from the named environment variable, never from the file.
type ImageryConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Triangulation: TriangulationConfig{
			DefaultDistanceM: 1000,
			MaxDistanceM:     10000,
			SpreadScaleM:     250,
		},
		Correlation: CorrelationConfig{
			ConfidenceThreshold: 0.6,
			Zoom:                17,
		},
		TileCache: TileCacheConfig{
			TTL:          Duration(24 * time.Hour),
			FetchTimeout: Duration(5 * time.Second),
			Dir:          "cache/satellite",
		},
		Imagery: ImageryConfig{
			APIKeyEnv: "SATELLITE_API_KEY",
		},
	}
}

// Load reads the YAML file at path, layered over Default. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.Triangulation.DefaultDistanceM <= 0 {
		return fmt.Errorf("triangulation.default_distance_m must be positive")
	}
	if c.Triangulation.MaxDistanceM < c.Triangulation.DefaultDistanceM {
		return fmt.Errorf("triangulation.max_distance_m must be >= default_distance_m")
	}
	if c.Triangulation.SpreadScaleM <= 0 {
		return fmt.Errorf("triangulation.spread_scale_m must be positive")
	}
	if c.Correlation.ConfidenceThreshold <= 0 || c.Correlation.ConfidenceThreshold > 1 {
		return fmt.Errorf("correlation.confidence_threshold must be in (0,1]")
	}
	if c.Correlation.Zoom < 1 || c.Correlation.Zoom > 22 {
		return fmt.Errorf("correlation.zoom must be in [1,22]")
	}
	if c.TileCache.TTL <= 0 {
		return fmt.Errorf("tile_cache.ttl must be positive")
	}
	if c.TileCache.FetchTimeout <= 0 {
		return fmt.Errorf("tile_cache.fetch_timeout must be positive")
	}
	return nil
}
