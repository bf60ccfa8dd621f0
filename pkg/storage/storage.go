// Package storage resolves the configured attachment storage backend.
//
// Backends register under a dotted "<module>.<Class>" path, for example
// "filesystem.Storage" or "gcs.Storage". Load builds the backend named by
// configuration from a map of constructor options.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ErrImproperlyConfigured is matched by every error returned from Load.
var ErrImproperlyConfigured = errors.New("improperly configured")

// ErrNotExist is returned by Open when the named file is missing.
var ErrNotExist = errors.New("storage: file does not exist")

// ImproperlyConfigured describes a storage path that cannot be resolved.
type ImproperlyConfigured struct {
	Msg string
	// Registered lists the known backend paths when the lookup failed.
	Registered []string
}

func (e *ImproperlyConfigured) Error() string { return e.Msg }

func (e *ImproperlyConfigured) Is(target error) bool { return target == ErrImproperlyConfigured }

// Backend persists file-like data.
type Backend interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	URL(name string) string
}

// Factory builds a backend from constructor options.
type Factory func(ctx context.Context, kwargs map[string]any) (Backend, error)

var (
	mu       sync.RWMutex
	registry = map[string]map[string]Factory{}
)

// Register makes a backend factory available under path. It panics on a
// malformed or duplicate path.
func Register(path string, f Factory) {
	mod, class, ok := splitPath(path)
	if !ok {
		panic(fmt.Sprintf("storage: invalid backend path %q", path))
	}
	mu.Lock()
	defer mu.Unlock()
	classes := registry[mod]
	if classes == nil {
		classes = map[string]Factory{}
		registry[mod] = classes
	}
	if _, dup := classes[class]; dup {
		panic(fmt.Sprintf("storage: backend %q registered twice", path))
	}
	classes[class] = f
}

// Registered lists every registered backend path, sorted.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	var out []string
	for mod, classes := range registry {
		for class := range classes {
			out = append(out, mod+"."+class)
		}
	}
	sort.Strings(out)
	return out
}

func splitPath(path string) (string, string, bool) {
	i := strings.LastIndex(path, ".")
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// Load returns the backend registered under path, built from kwargs.
// An empty path means no backend is configured and yields (nil, nil).
func Load(ctx context.Context, path string, kwargs map[string]any) (Backend, error) {
	if path == "" {
		return nil, nil
	}
	mod, class, ok := splitPath(path)
	if !ok {
		return nil, &ImproperlyConfigured{
			Msg:        fmt.Sprintf("Error importing storage backend %s: %q", path, "not a dotted module.Class path"),
			Registered: Registered(),
		}
	}

	mu.RLock()
	classes, found := registry[mod]
	var f Factory
	if found {
		f = classes[class]
	}
	mu.RUnlock()

	if !found {
		return nil, &ImproperlyConfigured{
			Msg:        fmt.Sprintf("Error importing storage backend %s: %q", mod, "no module named "+mod),
			Registered: Registered(),
		}
	}
	if f == nil {
		return nil, &ImproperlyConfigured{
			Msg:        fmt.Sprintf("Module %q does not define a %q class", mod, class),
			Registered: Registered(),
		}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	b, err := f(ctx, kwargs)
	if err != nil {
		return nil, &ImproperlyConfigured{
			Msg: fmt.Sprintf("Error constructing storage backend %s: %v", path, err),
		}
	}
	return b, nil
}

// decode copies kwargs into the options struct out.
func decode(kwargs map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "kwarg",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(kwargs)
}

// cleanName normalises a storage name to a slash separated relative path.
func cleanName(name string) (string, error) {
	name = strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if name == "" {
		return "", errors.New("storage: empty file name")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("storage: invalid file name %q", name)
		}
	}
	return name, nil
}
