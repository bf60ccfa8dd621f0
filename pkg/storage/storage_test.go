package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPath(t *testing.T) {
	b, err := Load(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestLoad_UnknownModule(t *testing.T) {
	_, err := Load(context.Background(), "nosuchmodule.Storage", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImproperlyConfigured))
	assert.Contains(t, err.Error(), "Error importing storage backend nosuchmodule")

	var ic *ImproperlyConfigured
	require.ErrorAs(t, err, &ic)
	assert.Contains(t, ic.Registered, "memory.Storage")
}

func TestLoad_NotDotted(t *testing.T) {
	_, err := Load(context.Background(), "filesystem", nil)
	require.ErrorIs(t, err, ErrImproperlyConfigured)
}

func TestLoad_MissingClass(t *testing.T) {
	_, err := Load(context.Background(), "memory.Bucket", nil)
	require.ErrorIs(t, err, ErrImproperlyConfigured)
	assert.Equal(t, `Module "memory" does not define a "Bucket" class`, err.Error())

	var ic *ImproperlyConfigured
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, Registered(), ic.Registered)
}

func TestLoad_MemoryWithEmptyKwargs(t *testing.T) {
	b, err := Load(context.Background(), "memory.Storage", map[string]any{})
	require.NoError(t, err)
	require.IsType(t, &FileSystem{}, b)
}

func TestLoad_FilesystemKwargs(t *testing.T) {
	dir := t.TempDir()
	b, err := Load(context.Background(), "filesystem.Storage", map[string]any{
		"location": dir,
		"base_url": "https://cdn.example.com/media",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a/b%20c.txt", b.URL("a/b c.txt"))
}

func TestLoad_UnknownKwarg(t *testing.T) {
	_, err := Load(context.Background(), "memory.Storage", map[string]any{"colour": "blue"})
	require.ErrorIs(t, err, ErrImproperlyConfigured)
}

func TestLoad_GCSRequiresBucket(t *testing.T) {
	_, err := Load(context.Background(), "gcs.Storage", nil)
	require.ErrorIs(t, err, ErrImproperlyConfigured)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestRegistered(t *testing.T) {
	assert.Subset(t, Registered(), []string{"filesystem.Storage", "gcs.Storage", "memory.Storage"})
}

func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() { Register("memory.Storage", newMemory) })
	assert.Panics(t, func() { Register("nodot", newMemory) })
}

func TestFileSystem_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewFileSystem(afero.NewMemMapFs(), "/media")

	name, err := b.Save(ctx, "attachments/1/note.txt", "text/plain", bytes.NewBufferString("hello"))
	require.NoError(t, err)
	assert.Equal(t, "attachments/1/note.txt", name)

	ok, err := b.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := b.Open(ctx, name)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "/media/attachments/1/note.txt", b.URL(name))

	require.NoError(t, b.Delete(ctx, name))
	require.NoError(t, b.Delete(ctx, name))
	_, err = b.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFileSystem_RejectsTraversal(t *testing.T) {
	b := NewFileSystem(afero.NewMemMapFs(), "")
	_, err := b.Save(context.Background(), "../etc/passwd", "", bytes.NewBufferString("x"))
	require.Error(t, err)
	_, err = b.Save(context.Background(), "", "", bytes.NewBufferString("x"))
	require.Error(t, err)
}
