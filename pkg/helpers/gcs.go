package helpers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSPublicHost serves objects of publicly readable buckets.
const GCSPublicHost = "https://storage.googleapis.com"

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// UploadObject streams r into bucket/objectPath in a single request.
// Attachments are size-capped before they get here.
func UploadObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader) error {
	wc := client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	if contentType != "" {
		wc.ContentType = contentType
	}
	wc.ChunkSize = 0
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return fmt.Errorf("gcs upload %s/%s: %w", bucket, objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("gcs upload %s/%s: %w", bucket, objectPath, err)
	}
	return nil
}

// PublicURL is the public link of an object, escaping each path segment.
func PublicURL(bucket, objectPath string) string {
	segs := strings.Split(objectPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return GCSPublicHost + "/" + url.PathEscape(bucket) + "/" + strings.Join(segs, "/")
}
