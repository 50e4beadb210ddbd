package database

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("payload"), 0o644))

	logger := zerolog.New(io.Discard)
	svc := NewBackupService(dbPath, filepath.Join(dir, "backups"), time.Hour, 7, &logger)

	require.NoError(t, svc.PerformBackup())

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, "backups", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backups, 0o755))

	oldFile := filepath.Join(backups, "roomserve_old.db")
	newFile := filepath.Join(backups, "roomserve_new.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0o644))

	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	logger := zerolog.New(io.Discard)
	svc := NewBackupService(filepath.Join(dir, "live.db"), backups, time.Hour, 7, &logger)
	svc.CleanupOldBackups()

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
}

func TestCleanupDisabledWithoutRetention(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backups, 0o755))

	oldFile := filepath.Join(backups, "roomserve_old.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	stale := time.Now().AddDate(0, 0, -365)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	logger := zerolog.New(io.Discard)
	svc := NewBackupService(filepath.Join(dir, "live.db"), backups, time.Hour, 0, &logger)
	svc.CleanupOldBackups()

	assert.FileExists(t, oldFile)
}
