package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectWriterFactory opens a writer for one object. Closing the writer
// commits the upload.
type ObjectWriterFactory interface {
	NewObjectWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser
}

type gcsClient struct {
	client *storage.Client
}

func newGCSClient(ctx context.Context, credentialsJSON string) (*gcsClient, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &gcsClient{client: client}, nil
}

func (c *gcsClient) NewObjectWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	w := c.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

// GCSArchiver writes raw webhook payloads to a Cloud Storage bucket
type GCSArchiver struct {
	writers ObjectWriterFactory
	bucket  string
	prefix  string
}

// NewGCSArchiver creates an archiver around an existing writer factory
func NewGCSArchiver(writers ObjectWriterFactory, bucket, prefix string) *GCSArchiver {
	return &GCSArchiver{
		writers: writers,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
	}
}

// Archive stores payload under <prefix>/yyyy/mm/dd/<eventId>.json
func (a *GCSArchiver) Archive(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) error {
	key := objectKey(a.prefix, eventID, receivedAt)

	w := a.writers.NewObjectWriter(ctx, a.bucket, key, payloadContentType)
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", a.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
