package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/jobtrail/internal/config"
)

type fakeObject struct {
	bucket, key, contentType string
	buf                      bytes.Buffer
	closed                   bool
	closeErr                 error
}

func (o *fakeObject) Write(p []byte) (int, error) { return o.buf.Write(p) }

func (o *fakeObject) Close() error {
	o.closed = true
	return o.closeErr
}

type fakeWriters struct {
	objects  []*fakeObject
	closeErr error
}

func (f *fakeWriters) NewObjectWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	o := &fakeObject{bucket: bucket, key: key, contentType: contentType, closeErr: f.closeErr}
	f.objects = append(f.objects, o)
	return o
}

func TestGCSArchiver_Archive(t *testing.T) {
	writers := &fakeWriters{}
	a := NewGCSArchiver(writers, "billing-archive", "stripe-events/")
	received := time.Date(2026, 2, 3, 23, 59, 0, 0, time.UTC)

	require.NoError(t, a.Archive(context.Background(), "evt_123", received, []byte(`{"id":"evt_123"}`)))
	require.Len(t, writers.objects, 1)
	obj := writers.objects[0]
	assert.Equal(t, "billing-archive", obj.bucket)
	assert.Equal(t, "stripe-events/2026/02/03/evt_123.json", obj.key)
	assert.Equal(t, "application/json", obj.contentType)
	assert.Equal(t, `{"id":"evt_123"}`, obj.buf.String())
	assert.True(t, obj.closed)
}

func TestGCSArchiver_CloseError(t *testing.T) {
	a := NewGCSArchiver(&fakeWriters{closeErr: errors.New("permission denied")}, "b", "")
	err := a.Archive(context.Background(), "evt_1", time.Now(), []byte("{}"))
	assert.ErrorContains(t, err, "permission denied")
}

func TestNew_UnsupportedBackend(t *testing.T) {
	_, err := New(context.Background(), config.ArchiveConfig{Backend: "azure", Bucket: "b"})
	assert.ErrorContains(t, err, "unsupported archive backend")
}
