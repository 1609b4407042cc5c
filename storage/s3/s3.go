// Package s3 stores finished clips in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/storage"
)

var _ storage.Storage = (*Store)(nil)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Store uploads to one bucket and downloads through a storage.Downloader.
type Store struct {
	api           PutObjectAPI
	bucket        string
	publicBaseURL string
	downloader    *storage.Downloader
}

// Option configures a Store.
type Option func(*Store)

// WithDownloader replaces the default downloader.
func WithDownloader(d *storage.Downloader) Option {
	return func(s *Store) { s.downloader = d }
}

// WithPublicBaseURL sets the prefix for returned object URLs.
func WithPublicBaseURL(u string) Option {
	return func(s *Store) { s.publicBaseURL = strings.TrimRight(u, "/") }
}

// NewWithAPI creates a Store over an existing client.
func NewWithAPI(api PutObjectAPI, bucket string, opts ...Option) *Store {
	s := &Store{api: api, bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}
	if s.downloader == nil {
		s.downloader = storage.NewDownloader()
	}
	return s
}

// New builds an S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg zencourt.StorageConfig, opts ...Option) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, zencourt.ErrNoStorage
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = defaultPublicURL(cfg)
	}
	dl := storage.NewDownloader(
		storage.WithAttempts(cfg.DownloadRetries),
		storage.WithDownloadTimeout(cfg.DownloadTimeout),
	)
	all := append([]Option{WithPublicBaseURL(base), WithDownloader(dl)}, opts...)
	return NewWithAPI(client, cfg.Bucket, all...), nil
}

// UploadFile implements storage.Storage.
func (s *Store) UploadFile(ctx context.Context, in *storage.UploadInput) (string, error) {
	if in.Key == "" {
		return "", errors.New("s3: empty object key")
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(in.Key),
		Body:          bytes.NewReader(in.Body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(in.Body))),
		Metadata:      in.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", in.Key, err)
	}
	return s.ObjectURL(in.Key), nil
}

// DownloadBufferWithRetry implements storage.Storage.
func (s *Store) DownloadBufferWithRetry(ctx context.Context, u string, opts storage.DownloadOptions) (*storage.Download, error) {
	return s.downloader.Download(ctx, u, opts)
}

// ObjectURL returns the public URL of key.
func (s *Store) ObjectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/" + strings.Join(segments, "/")
}

func defaultPublicURL(cfg zencourt.StorageConfig) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}
