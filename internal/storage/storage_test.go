package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/naryn-heritage/heritage-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"uploads/images/a.jpg":     "uploads/images/a.jpg",
		"/qrcodes/qrcode_1.png":    "qrcodes/qrcode_1.png",
		"uploads//images/./a.jpg":  "uploads/images/a.jpg",
		"uploads/../qrcodes/q.png": "qrcodes/q.png",
	}
	for in, want := range cases {
		got, err := storage.CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "/", "..", "../etc/passwd", "uploads/../../x"} {
		_, err := storage.CleanKey(bad)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, bad)
	}
}

func exerciseBackend(t *testing.T, backend storage.Backend) {
	t.Helper()
	ctx := context.Background()
	key := "uploads/images/2026/10/abcd1234_yurt.jpg"

	_, err := backend.Download(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("first"), "image/jpeg"))
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("second"), "image/jpeg"))

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(data))

	require.NoError(t, backend.Delete(ctx, key))
	assert.ErrorIs(t, backend.Delete(ctx, key), storage.ErrNotFound)

	assert.ErrorIs(t, backend.Upload(ctx, "../escape.txt", strings.NewReader("x"), ""), storage.ErrInvalidKey)
}

func TestFSBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := storage.NewFS(dir)
	require.NoError(t, err)

	exerciseBackend(t, backend)

	require.NoError(t, backend.Upload(context.Background(), "qrcodes/q.png", strings.NewReader("png"), "image/png"))
	_, err = os.Stat(filepath.Join(dir, "qrcodes", "q.png"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = storage.NewFS("")
	assert.Error(t, err)
}

func TestMemoryBackend(t *testing.T) {
	backend := storage.NewMemory()
	exerciseBackend(t, backend)
	assert.Empty(t, backend.Keys())
}

func TestNewSelectsBackend(t *testing.T) {
	b, err := storage.New(storage.Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, b)

	b, err = storage.New(storage.Config{Backend: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &storage.FS{}, b)

	_, err = storage.New(storage.Config{Backend: "ftp"})
	assert.Error(t, err)
}
