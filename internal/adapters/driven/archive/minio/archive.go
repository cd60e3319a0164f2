// Package minio archives uploaded contract PDFs in S3-compatible object
// storage.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure Archive implements the interface.
var _ driven.Archive = (*Archive)(nil)

// DefaultRegion avoids a bucket location lookup on every request.
const DefaultRegion = "us-east-1"

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object name.
	Prefix string
	Region string
}

// ConfigFromSettings maps archive settings onto a Config.
func ConfigFromSettings(s domain.ArchiveSettings) Config {
	return Config{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Bucket:    s.Bucket,
		UseSSL:    s.UseSSL,
	}
}

// Archive stores PDFs as objects in one bucket.
type Archive struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: archive endpoint is required", domain.ErrConfiguration)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: archive bucket is required", domain.ErrConfiguration)
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created archive bucket %s", cfg.Bucket)
	}

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Put uploads r under name. A negative size streams the body.
func (a *Archive) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	key, err := a.objectName(name)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/pdf"
	}

	info, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("archiving %s: %w", name, err)
	}
	logger.Debug("archived %s to %s/%s (%d bytes)", name, a.bucket, key, info.Size)
	return nil
}

// Close is a no-op; the client holds no long-lived connection.
func (a *Archive) Close() error {
	return nil
}

// objectName flattens name to its base and applies the prefix.
func (a *Archive) objectName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", errors.New("archive object name is empty")
	}
	if a.prefix == "" {
		return base, nil
	}
	return a.prefix + "/" + base, nil
}
