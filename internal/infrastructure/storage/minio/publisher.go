package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// PublishedObject describes one uploaded artifact.
type PublishedObject struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// ArtifactPublisher uploads the output files of a run under
// <prefix>/<run-id>/<file name>.
type ArtifactPublisher struct {
	client *MinIOClient
	logger logging.Logger
}

func NewArtifactPublisher(client *MinIOClient, log logging.Logger) *ArtifactPublisher {
	return &ArtifactPublisher{client: client, logger: logging.OrNop(log).Named("artifacts")}
}

// ObjectKey returns the key a file of the given run is stored under.
func (p *ArtifactPublisher) ObjectKey(runID, file string) string {
	return path.Join(p.client.config.Prefix, runID, filepath.Base(file))
}

// Publish uploads files in order and stops at the first failure.  Objects
// uploaded before the failure are returned alongside the error.
func (p *ArtifactPublisher) Publish(ctx context.Context, runID string, files []string) ([]PublishedObject, error) {
	api, err := p.client.api()
	if err != nil {
		return nil, err
	}
	out := make([]PublishedObject, 0, len(files))
	for _, f := range files {
		obj, err := p.upload(ctx, api, runID, f)
		if err != nil {
			return out, err
		}
		out = append(out, obj)
		p.logger.Debug("artifact published", logging.String(logging.KeyPath, f), logging.String("key", obj.Key))
	}
	p.logger.Info("run artifacts published",
		logging.String(logging.KeyRunID, runID),
		logging.String("bucket", p.client.Bucket()),
		logging.Int("objects", len(out)))
	return out, nil
}

func (p *ArtifactPublisher) upload(ctx context.Context, api MinIOAPI, runID, file string) (PublishedObject, error) {
	fh, err := os.Open(file)
	if err != nil {
		return PublishedObject{}, errors.Wrap(err, errors.ErrCodeIO, "cannot open artifact").WithDetail(file)
	}
	defer fh.Close()
	st, err := fh.Stat()
	if err != nil {
		return PublishedObject{}, errors.Wrap(err, errors.ErrCodeIO, "cannot stat artifact").WithDetail(file)
	}

	key := p.ObjectKey(runID, file)
	info, err := api.PutObject(ctx, p.client.Bucket(), key, fh, st.Size(), minio.PutObjectOptions{
		ContentType:  ContentType(file),
		UserMetadata: map[string]string{"run-id": runID},
	})
	if err != nil {
		return PublishedObject{}, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	return PublishedObject{Bucket: info.Bucket, Key: info.Key, Size: info.Size, ETag: info.ETag}, nil
}

// List returns the keys published for runID.
func (p *ArtifactPublisher) List(ctx context.Context, runID string) ([]string, error) {
	api, err := p.client.api()
	if err != nil {
		return nil, err
	}
	prefix := path.Join(p.client.config.Prefix, runID) + "/"
	var keys []string
	for obj := range api.ListObjects(ctx, p.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return keys, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list failed").WithDetail(prefix)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// ContentType maps the pipeline's file extensions to MIME types.
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".json":
		return "application/json"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "application/octet-stream"
	}
}

//Personal.AI order the ending
