package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
)

func init() {
	Register("gcs.Storage", newGCS)
}

// GCSOptions configure gcs.Storage. An empty CredentialsFile uses
// Application Default Credentials.
type GCSOptions struct {
	Bucket          string `kwarg:"bucket"`
	CredentialsFile string `kwarg:"credentials_file"`
	Prefix          string `kwarg:"prefix"`
}

// GCS stores files as objects in a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
}

func newGCS(ctx context.Context, kwargs map[string]any) (Backend, error) {
	var opts GCSOptions
	if err := decode(kwargs, &opts); err != nil {
		return nil, err
	}
	if opts.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	client, err := helpers.NewGCSClient(ctx, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gcs: %w", err)
	}
	return NewGCS(client, opts.Bucket, opts.Prefix), nil
}

// NewGCS wraps an existing client.
func NewGCS(client *gcs.Client, bucket, prefix string) *GCS {
	return &GCS{client: client, bucket: bucket, prefix: prefix}
}

func (g *GCS) object(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if g.prefix == "" {
		return name, nil
	}
	return g.prefix + "/" + name, nil
}

func (g *GCS) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	obj, err := g.object(name)
	if err != nil {
		return "", err
	}
	if err := helpers.UploadObject(ctx, g.client, g.bucket, obj, contentType, r); err != nil {
		return "", err
	}
	return name, nil
}

func (g *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := g.object(name)
	if err != nil {
		return nil, err
	}
	rc, err := g.client.Bucket(g.bucket).Object(obj).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	return rc, err
}

func (g *GCS) Delete(ctx context.Context, name string) error {
	obj, err := g.object(name)
	if err != nil {
		return err
	}
	err = g.client.Bucket(g.bucket).Object(obj).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) Exists(ctx context.Context, name string) (bool, error) {
	obj, err := g.object(name)
	if err != nil {
		return false, err
	}
	_, err = g.client.Bucket(g.bucket).Object(obj).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (g *GCS) URL(name string) string {
	obj, err := g.object(name)
	if err != nil {
		return ""
	}
	return helpers.PublicURL(g.bucket, obj)
}
