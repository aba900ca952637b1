package report

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/noderefresh/node-refresh-operator/internal/platform/s3"
)

const (
	contentType     = "application/json"
	contentEncoding = "zstd"
	extension       = ".json.zst"
)

// Archiver stores finished run reports.
type Archiver interface {
	Archive(ctx context.Context, r Report) error
}

// ObjectStore is the subset of the S3 client used by S3Archiver.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType, contentEncoding string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]s3.Object, error)
}

// S3Archiver writes reports to <prefix>/<name>/<runID>.json.zst.
type S3Archiver struct {
	store  ObjectStore
	bucket string
	prefix string
}

var _ Archiver = (*S3Archiver)(nil)

// NewS3Archiver creates an archiver for bucket.
func NewS3Archiver(store ObjectStore, bucket, prefix string) *S3Archiver {
	return &S3Archiver{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of a report.
func (a *S3Archiver) Key(name, runID string) string {
	return path.Join(a.prefix, name, runID+extension)
}

// Archive implements Archiver.
func (a *S3Archiver) Archive(ctx context.Context, r Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	return a.store.PutObject(ctx, a.bucket, a.Key(r.Name, r.RunID), data, contentType, contentEncoding)
}

// Get fetches one report.
func (a *S3Archiver) Get(ctx context.Context, name, runID string) (Report, error) {
	data, err := a.store.GetObject(ctx, a.bucket, a.Key(name, runID))
	if err != nil {
		return Report{}, err
	}
	return Decode(data)
}

// RunIDs lists the archived run IDs of name in key order.
func (a *S3Archiver) RunIDs(ctx context.Context, name string) ([]string, error) {
	dir := path.Join(a.prefix, name) + "/"
	objects, err := a.store.ListObjects(ctx, a.bucket, dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		base := strings.TrimPrefix(o.Key, dir)
		if strings.Contains(base, "/") || !strings.HasSuffix(base, extension) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(base, extension))
	}
	sort.Strings(ids)
	return ids, nil
}

// Discard drops reports. It is used when archiving is disabled.
type Discard struct{}

// Archive implements Archiver.
func (Discard) Archive(context.Context, Report) error { return nil }
