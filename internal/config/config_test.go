package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "log.txt", cfg.Journal)
	assert.True(t, cfg.Verify)
	assert.True(t, cfg.Backup)
	assert.False(t, cfg.Compress)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "norm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal: changes.txt\ncompress: true\nverify: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "changes.txt", cfg.Journal)
	assert.True(t, cfg.Compress)
	assert.False(t, cfg.Verify)
	assert.True(t, cfg.Backup)
	assert.Equal(t, path, cfg.File)
}

func TestLoadWorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".epubnorm.yaml"), []byte("backup: false\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Backup)
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("EPUBNORM_VERBOSE", "true")
	t.Setenv("EPUBNORM_JOURNAL", "journal.log")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "journal.log", cfg.Journal)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
