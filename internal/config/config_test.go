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
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CWC_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cwc-bridge", cfg.App.Name)
	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.Equal(t, "fixed", cfg.Reconnect.Strategy)
	assert.Equal(t, 5*time.Second, cfg.Reconnect.Interval)
	assert.Equal(t, 115200, cfg.Transports.Serial.BaudRate)
	assert.Equal(t, []string{"_cros_p2p._tcp.local", "_ssh._tcp.local"}, cfg.Transports.MDNS.Services)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cwc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
reconnect:
  strategy: exponential
transports:
  virtual:
    enable: true
    devices:
      - name: demo-mbot
        family: mbot
`), 0o600))
	t.Setenv("CWC_RUNNER_RATEPERSEC", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "exponential", cfg.Reconnect.Strategy)
	assert.Equal(t, 5, cfg.Runner.RatePerSec)
	require.Len(t, cfg.Transports.Virtual.Devices, 1)
	assert.Equal(t, "mbot", cfg.Transports.Virtual.Devices[0].Family)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reconnect:\n  strategy: random\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("CWC_CONFIG", "")
	cfg, err := Load(filepath.Join("..", "..", "configs", "example.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Transports.Virtual.Enable)
	require.Len(t, cfg.Transports.Virtual.Devices, 3)
	assert.Equal(t, "sphero", cfg.Transports.Virtual.Devices[0].Family)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.HTTP.WriteTimeout)
}
