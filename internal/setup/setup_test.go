package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pharmaguard-mcp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestRegisterPreservesOtherSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "theme": "dark",
  "mcpServers": {"other": {"command": "/usr/bin/other"}}
}`), 0o644))

	bin := fakeBinary(t)
	entry, err := Register(path, Options{BinaryPath: bin, DataDir: "/data/pg"})
	require.NoError(t, err)
	assert.Equal(t, bin, entry.Command)
	assert.Equal(t, "/data/pg", entry.Env["PHARMAGUARD_DATA_DIR"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `"dark"`, string(doc["theme"]))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "other")
	assert.Contains(t, cfg.MCPServers, DefaultServerName)
}

func TestRegisterWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	entry, err := Register(path, Options{Name: "pg-test", BinaryPath: fakeBinary(t), ConfigFile: "/etc/pharmaguard/config.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--config", "/etc/pharmaguard/config.yaml"}, entry.Args)

	status, err := Inspect(path, "pg-test")
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Empty(t, status.Issues)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	status, err := Inspect(path, "")
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.Len(t, status.Issues, 1)

	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{
		DefaultServerName: {Command: "/nonexistent/pharmaguard-mcp"},
	}}
	require.NoError(t, SaveClientConfig(path, cfg))

	status, err = Inspect(path, "")
	require.NoError(t, err)
	assert.True(t, status.Registered)
	require.Len(t, status.Issues, 1)
	assert.Contains(t, status.Issues[0], "not found")
}

func TestLoadClientConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}
