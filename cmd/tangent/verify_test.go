package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/tensor"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestLoadConfig tests YAML parsing and defaulting.
func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
batch: 6
input_dim: 5
depth: 3
method: exact
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Batch)
	assert.Equal(t, 3, cfg.Depth)
	assert.Equal(t, "exact", cfg.Method)
	assert.InDelta(t, 1.4142, cfg.WStd, 1e-3)
}

// TestLoadConfigRejectsBadValues tests validation failures.
func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "batch: 0\ninput_dim: 5\ndepth: 1\n"))
	assert.Error(t, err)
	_, err = loadConfig(writeConfig(t, "batch: 4\ninput_dim: 5\ndepth: 0\n"))
	assert.Error(t, err)
	_, err = loadConfig(writeConfig(t, "batch: [nonsense\n"))
	assert.Error(t, err)
	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestBuildNetworkRejectsUnknownMethod tests method validation.
func TestBuildNetworkRejectsUnknownMethod(t *testing.T) {
	cfg := &verifyConfig{Batch: 4, InputDim: 5, Depth: 1, WStd: 1, Method: "bogus"}
	_, err := buildNetwork(cfg)
	assert.Error(t, err)
}

// TestFrobError tests the relative Frobenius distance.
func TestFrobError(t *testing.T) {
	a, err := tensor.FromSlice([]float64{3, 0, 0, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float64{0, 0, 0, 0}, tensor.Shape{2, 2})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, frobError(a, a), 1e-12)
	// Zero reference falls back to the absolute distance.
	assert.InDelta(t, 5.0, frobError(a, b), 1e-12)
}
