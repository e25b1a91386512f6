package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOC_CONFIG", "")
	t.Setenv("SOC_MODEL_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, int64(42), cfg.ShuffleSeed)
	assert.Equal(t, filepath.Join("logs", "traffic_log.csv"), cfg.TrafficLogPath)
	assert.Equal(t, "float_input", cfg.ONNX.Input)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SOC_CONFIG", "")
	t.Setenv("SOC_MODEL_PATH", "/models/rf.onnx")
	t.Setenv("SOC_HTTP_PORT", "9090")
	t.Setenv("SOC_REFRESH_INTERVAL", "250ms")
	t.Setenv("SOC_SHUFFLE_SEED", "7")
	t.Setenv("SOC_DEBUG", "true")
	t.Setenv("SOC_ONNX_PROBA_OUTPUT", "output_probability")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/models/rf.onnx", cfg.ModelPath)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.RefreshInterval)
	assert.Equal(t, int64(7), cfg.ShuffleSeed)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "output_probability", cfg.ONNX.ProbaOutput)
	assert.Equal(t, "label", cfg.ONNX.LabelOutput)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soc.yaml")
	body := "traffic_log: /var/soc/traffic.csv\nhttp_port: \"7000\"\nrefresh_interval: 2s\nonnx:\n  input: input\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("SOC_CONFIG", path)
	t.Setenv("SOC_HTTP_PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/soc/traffic.csv", cfg.TrafficLogPath)
	assert.Equal(t, "7001", cfg.HTTPPort)
	assert.Equal(t, 2*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "input", cfg.ONNX.Input)
	assert.Equal(t, "probabilities", cfg.ONNX.ProbaOutput)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("SOC_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("http_port: [\n"), 0o644))
		t.Setenv("SOC_CONFIG", path)
		_, err := Load()
		assert.Error(t, err)
	})

	for key, val := range map[string]string{
		"SOC_REFRESH_INTERVAL": "soon",
		"SOC_SHUFFLE_SEED":     "forty-two",
		"SOC_DEBUG":            "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv("SOC_CONFIG", "")
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}

	t.Run("non-positive interval", func(t *testing.T) {
		t.Setenv("SOC_CONFIG", "")
		t.Setenv("SOC_REFRESH_INTERVAL", "0s")
		_, err := Load()
		assert.Error(t, err)
	})
}
