package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThalysDev/finalizabot-sub000/internal/archive"
)

func TestNewLocal(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		a, err := archive.NewLocal(archive.LocalConfig{BaseDir: tempDir})
		require.NoError(t, err)
		assert.NotNil(t, a)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := archive.NewLocal(archive.LocalConfig{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "archivefile")
		require.NoError(t, err)
		t.Cleanup(func() {
			if removeErr := os.Remove(tempFile.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		_, err = archive.NewLocal(archive.LocalConfig{BaseDir: tempFile.Name()})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingBaseDir", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "payloads")
		_, err := archive.NewLocal(archive.LocalConfig{BaseDir: base})
		require.NoError(t, err)
		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestLocalPutObject(t *testing.T) {
	tempDir := t.TempDir()
	a, err := archive.NewLocal(archive.LocalConfig{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		path := "run-1/100.json"
		data := []byte(`{"shotmap":[]}`)
		uri, err := a.PutObject(context.Background(), path, "application/json", data)
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, path), uri)

		readData, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := a.PutObject(context.Background(), "", "application/json", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("PathTraversalRejected", func(t *testing.T) {
		_, err := a.PutObject(context.Background(), "../escape.json", "application/json", []byte("x"))
		assert.Error(t, err)
	})
}

func TestMemoryPutObject(t *testing.T) {
	t.Parallel()

	a := archive.NewMemory()
	uri, err := a.PutObject(context.Background(), "run-1/100.json", "application/json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "memory://run-1/100.json", uri)

	data, ok := a.Object("run-1/100.json")
	require.True(t, ok)
	assert.Equal(t, []byte(`{}`), data)
}
