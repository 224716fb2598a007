package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/globaltrotters/apiserver/config"
	"google.golang.org/api/option"
)

// GCSClient keeps photos in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *gcs.Client
	bucket    *gcs.BucketHandle
	name      string
	projectID string
}

func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSClient{
		client:    client,
		bucket:    client.Bucket(name),
		name:      name,
		projectID: strings.TrimSpace(cfg.ProjectID),
	}, nil
}

// EnsureBucket creates the bucket with uniform access when it is missing.
// Creation needs a project id; an existing bucket does not.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.bucket.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, gcs.ErrBucketNotExist):
		return err
	case g.projectID == "":
		return errors.New("gcs project id is required to create bucket")
	}
	return g.bucket.Create(ctx, g.projectID, &gcs.BucketAttrs{
		UniformBucketLevelAccess: gcs.UniformBucketLevelAccess{Enabled: true},
	})
}

// Put writes obj in a single request; photos are small enough that resumable
// chunked uploads only add round trips.
func (g *GCSClient) Put(ctx context.Context, obj Object) error {
	w := g.bucket.Object(obj.Key).NewWriter(ctx)
	w.ChunkSize = 0
	w.ContentType = obj.ContentType
	w.CacheControl = obj.CacheControl
	w.Metadata = obj.Metadata

	if _, err := io.Copy(w, obj.Body); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return r, nil
}

// Delete is idempotent.
func (g *GCSClient) Delete(ctx context.Context, key string) error {
	if err := g.bucket.Object(key).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (g *GCSClient) Bucket() string {
	return g.name
}
