package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithFileDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadWithFile("")
	require.NoError(t, err)

	assert.Equal(t, 9180, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Provider)
}

func TestLoadWithFileEnvOverrides(t *testing.T) {
	t.Setenv("CVSEARCHD_SERVER_HOST", "0.0.0.0")
	t.Setenv("CVSEARCHD_SERVER_PORT", "8085")
	t.Setenv("CVSEARCHD_SEARCH_TOP_K", "40")
	t.Setenv("CVSEARCHD_SEARCH_RELEVANCE_THRESHOLD", "0.1")
	t.Setenv("CVSEARCHD_STORE_PROVIDER", "memory")
	t.Setenv("CVSEARCHD_LOGGING_LEVEL", "debug")

	cfg, err := LoadWithFile("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 40, cfg.Search.TopK)
	assert.Equal(t, 0.1, cfg.Search.RelevanceThreshold)
	assert.Equal(t, "memory", cfg.Store.Provider)
	assert.Equal(t, "debug", cfg.Logging.Level.String())
}

func TestLoadWithFileRejectsInvalidEnv(t *testing.T) {
	t.Setenv("CVSEARCHD_SERVER_PORT", "99999")

	_, err := LoadWithFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port")
}

func TestValidateConfigPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		allowed bool
	}{
		{"user config dir", filepath.Join(home, ".config", "cvsearchd", "config.yaml"), true},
		{"system config dir", "/etc/cvsearchd/config.yaml", true},
		{"tmp dir", "/tmp/config.yaml", false},
		{"traversal out of config dir", filepath.Join(home, ".config", "cvsearchd", "..", "other", "config.yaml"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateConfigFileProperties(t *testing.T) {
	dir := t.TempDir()

	writeWithPerm := func(name string, perm os.FileMode) os.FileInfo {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8085\n"), perm))
		info, err := os.Stat(path)
		require.NoError(t, err)
		return info
	}

	assert.NoError(t, validateConfigFileProperties(writeWithPerm("owner-rw.yaml", 0600)))
	assert.NoError(t, validateConfigFileProperties(writeWithPerm("owner-r.yaml", 0400)))

	err := validateConfigFileProperties(writeWithPerm("world-readable.yaml", 0644))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestValidateConfigFilePropertiesSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.yaml")

	big := make([]byte, maxConfigFileSize+1)
	require.NoError(t, os.WriteFile(path, big, 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)

	err = validateConfigFileProperties(info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
