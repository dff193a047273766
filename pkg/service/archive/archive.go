package archive

import (
	"context"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// Service keeps raw upstream pages for later replay
type Service interface {
	Save(ctx context.Context, userID string, metric types.Metric, date time.Time, body []byte) error
}

// GCS writes pages to a Cloud Storage bucket as
// <prefix>/<user_id>/<metric>/<YYYY-MM-DD>.json
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a Cloud Storage archive using application default credentials
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Save implements Service
func (g *GCS) Save(ctx context.Context, userID string, metric types.Metric, date time.Time, body []byte) error {
	name := objectName(g.prefix, userID, metric, date)

	// Cancelling the writer context aborts the upload without committing
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(wctx)
	w.ContentType = "application/json"

	if err := writeObject(w, cancel, body); err != nil {
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}

	logging.From(ctx).Debug("Archived raw page", "bucket", g.bucket, "object", name, "bytes", len(body))
	return nil
}

// objectWriter is the part of *storage.Writer used by Save
type objectWriter interface {
	Write(p []byte) (int, error)
	Close() error
}

// writeObject writes body. On error it calls abort and leaves w unclosed.
func writeObject(w objectWriter, abort context.CancelFunc, body []byte) error {
	if _, err := w.Write(body); err != nil {
		abort()
		return err
	}
	return nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}

type noop struct{}

// Noop returns an archive that discards everything
func Noop() Service {
	return noop{}
}

func (noop) Save(context.Context, string, types.Metric, time.Time, []byte) error {
	return nil
}

func objectName(prefix, userID string, metric types.Metric, date time.Time) string {
	return path.Join(prefix, userID, metric.String(), date.Format(time.DateOnly)+".json")
}
