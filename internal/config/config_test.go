package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, DefaultPollIntervalMS, cfg.Watcher.PollIntervalMS)
	require.Equal(t, DefaultBM25K, cfg.Search.BM25K)
	require.Equal(t, DefaultKNNK, cfg.Search.KNNK)
	require.Empty(t, cfg.Languages)
}

func TestLoadMergesProjectFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlBody := "languages:\n  - go\n  - python\nwatcher:\n  poll_interval_ms: 1000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".retrieval.yaml"), []byte(yamlBody), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "python"}, cfg.Languages)
	require.Equal(t, 1000, cfg.Watcher.PollIntervalMS)
	require.Equal(t, DefaultBM25K, cfg.Search.BM25K)
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".retrieval.yaml"), []byte("watcher:\n  poll_interval_ms: 1000\n"), 0o644))

	t.Setenv("RETRIEVAL_POLL_INTERVAL_MS", "2500")
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 2500, cfg.Watcher.PollIntervalMS)
}

func TestValidateRejectsNegativeK(t *testing.T) {
	cfg := Default()
	cfg.Search.BM25K = -1
	require.Error(t, cfg.Validate())
}

func TestWriteYAMLCreatesParentDirsAndWritesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	cfg := Default()
	cfg.Languages = []string{"go"}
	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "go")
}
