// Package config loads the engine's runtime configuration: enabled
// languages, path filtering, the watcher's poll interval, and search
// top-K sizes. It layers a project file over built-in defaults and
// environment variable overrides, the way the rest of the engine's
// ambient stack is layered (lowest precedence first, env wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPollIntervalMS is the watcher's default poll period.
const DefaultPollIntervalMS = 750

// DefaultBM25K and DefaultKNNK are the default top-K sizes for search.
const (
	DefaultBM25K = 10
	DefaultKNNK  = 10
)

// ConfigFileNames are tried in order, relative to the project root.
var ConfigFileNames = []string{".retrieval.yaml", ".retrieval.yml"}

// Config is the engine's complete runtime configuration.
type Config struct {
	// Languages restricts chunking to these language names; empty means
	// every built-in language config is enabled.
	Languages []string `yaml:"languages" json:"languages"`

	// ExcludePaths are root-relative, slash-separated glob patterns
	// (path.Match syntax) checked by the CLI's path filter against every
	// file and directory. Prefixing a pattern with '!' re-includes a path
	// that an earlier pattern excluded. When non-empty, the filter takes
	// the place of the default dependency-dir skip; the VCS directory is
	// always skipped.
	ExcludePaths []string `yaml:"exclude_paths" json:"exclude_paths"`

	Watcher WatcherConfig `yaml:"watcher" json:"watcher"`
	Search  SearchConfig  `yaml:"search" json:"search"`
}

// WatcherConfig configures the coordinator's polling watcher.
type WatcherConfig struct {
	PollIntervalMS int `yaml:"poll_interval_ms" json:"poll_interval_ms"`
}

// SearchConfig configures the search DB's default top-K sizes.
type SearchConfig struct {
	BM25K int `yaml:"bm25_k" json:"bm25_k"`
	KNNK  int `yaml:"knn_k" json:"knn_k"`
}

// Default returns the built-in configuration: all languages enabled, a
// 750ms poll interval, and bm25_k/knn_k of 10.
func Default() *Config {
	return &Config{
		Watcher: WatcherConfig{PollIntervalMS: DefaultPollIntervalMS},
		Search:  SearchConfig{BM25K: DefaultBM25K, KNNK: DefaultKNNK},
	}
}

// Load reads config from the first of ConfigFileNames found under dir,
// merges it over Default(), then applies environment overrides. A
// missing config file is not an error; the defaults are used as-is.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if err := cfg.mergeFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFromFile(dir string) error {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read config %s: %w", path, err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		c.mergeWith(&fileCfg)
		return nil
	}
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if len(other.Languages) > 0 {
		c.Languages = other.Languages
	}
	if len(other.ExcludePaths) > 0 {
		c.ExcludePaths = other.ExcludePaths
	}
	if other.Watcher.PollIntervalMS > 0 {
		c.Watcher.PollIntervalMS = other.Watcher.PollIntervalMS
	}
	if other.Search.BM25K > 0 {
		c.Search.BM25K = other.Search.BM25K
	}
	if other.Search.KNNK > 0 {
		c.Search.KNNK = other.Search.KNNK
	}
}

// applyEnvOverrides applies RETRIEVAL_* environment variables, which
// take precedence over both defaults and the project config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RETRIEVAL_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Watcher.PollIntervalMS = n
		}
	}
	if v := os.Getenv("RETRIEVAL_BM25_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.BM25K = n
		}
	}
	if v := os.Getenv("RETRIEVAL_KNN_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.KNNK = n
		}
	}
}

// Validate rejects a configuration that would make the engine unusable.
func (c *Config) Validate() error {
	if c.Watcher.PollIntervalMS < 0 {
		return fmt.Errorf("watcher.poll_interval_ms must be >= 0, got %d", c.Watcher.PollIntervalMS)
	}
	if c.Search.BM25K < 0 || c.Search.KNNK < 0 {
		return fmt.Errorf("search.bm25_k and search.knn_k must be >= 0")
	}
	return nil
}

// WriteYAML writes c to path, creating parent directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
