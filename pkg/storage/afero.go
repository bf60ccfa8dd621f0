package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

func init() {
	Register("filesystem.Storage", newFilesystem)
	Register("memory.Storage", newMemory)
}

// FileSystemOptions configure filesystem.Storage.
type FileSystemOptions struct {
	Location string `kwarg:"location"`
	BaseURL  string `kwarg:"base_url"`
}

// FileSystem stores files in an afero filesystem rooted at a location.
type FileSystem struct {
	fs      afero.Fs
	baseURL string
}

func newFilesystem(_ context.Context, kwargs map[string]any) (Backend, error) {
	opts := FileSystemOptions{Location: "media", BaseURL: "/media/"}
	if err := decode(kwargs, &opts); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Location, 0o755); err != nil {
		return nil, err
	}
	return NewFileSystem(afero.NewBasePathFs(afero.NewOsFs(), opts.Location), opts.BaseURL), nil
}

// MemoryOptions configure memory.Storage.
type MemoryOptions struct {
	BaseURL string `kwarg:"base_url"`
}

func newMemory(_ context.Context, kwargs map[string]any) (Backend, error) {
	opts := MemoryOptions{BaseURL: "/media/"}
	if err := decode(kwargs, &opts); err != nil {
		return nil, err
	}
	return NewFileSystem(afero.NewMemMapFs(), opts.BaseURL), nil
}

// NewFileSystem wraps an afero filesystem as a Backend.
func NewFileSystem(fsys afero.Fs, baseURL string) *FileSystem {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &FileSystem{fs: fsys, baseURL: baseURL}
}

func (f *FileSystem) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if dir := path.Dir(name); dir != "." {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	file, err := f.fs.Create(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func (f *FileSystem) Open(_ context.Context, name string) (io.ReadCloser, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	file, err := f.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (f *FileSystem) Delete(_ context.Context, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	err = f.fs.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileSystem) Exists(_ context.Context, name string) (bool, error) {
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}
	return afero.Exists(f.fs, name)
}

func (f *FileSystem) URL(name string) string {
	parts := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return f.baseURL + strings.Join(parts, "/")
}
