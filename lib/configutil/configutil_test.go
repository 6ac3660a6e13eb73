package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Url  string `json:"url"`
	Key  string `json:"key"`
	Days int    `json:"days"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.json5")
	write(t, path, `{
		// checked-in defaults
		url: "https://example.com",
		days: 30,
	}`)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com", cfg.Url)
	require.Equal(t, 30, cfg.Days)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "sources.json5"), `{url: "https://example.com", days: 30}`)
	write(t, filepath.Join(dir, "sources.local.json5"), `{key: "secret", days: 7}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "sources.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com", cfg.Url)
	require.Equal(t, "secret", cfg.Key)
	require.Equal(t, 7, cfg.Days)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "sources.local.json5"), `{key: "secret"}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "sources.json5"))
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.Key)
}

func TestReadConfigMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadConfig[testConfig](filepath.Join(dir, "sources.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
