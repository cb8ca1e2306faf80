package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string // base URL archived documents are reachable under, optional
}

// objectAPI is the subset of the S3 client the archive uses
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage archives exported documents in an S3-compatible bucket
type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // Required for MinIO
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Storage{
		client:    s3.New(opts),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

// ArchiveInput is a rendered document to keep
type ArchiveInput struct {
	Prefix      string // e.g. "reports" or "dashboards"
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// ArchiveOutput describes an archived object
type ArchiveOutput struct {
	Key        string
	URL        string // empty when no public URL is configured
	Size       int64
	ArchivedAt time.Time
}

// Archive stores a document under <prefix>/YYYY/MM/DD/<uuid><ext>
func (s *S3Storage) Archive(ctx context.Context, in ArchiveInput) (*ArchiveOutput, error) {
	now := s.now().UTC()
	key := objectKey(in.Prefix, now, uuid.NewString(), extensionOf(in.ContentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(in.Body),
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(int64(len(in.Body))),
		Metadata:      in.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	out := &ArchiveOutput{
		Key:        key,
		Size:       int64(len(in.Body)),
		ArchivedAt: now,
	}
	if s.publicURL != "" {
		out.URL = s.publicURL + "/" + key
	}
	return out, nil
}

// Delete removes an archived object
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

func objectKey(prefix string, t time.Time, id, ext string) string {
	key := fmt.Sprintf("%s/%s%s", t.Format("2006/01/02"), id, ext)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

// extensionOf returns the file extension of the exported content types
func extensionOf(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "text/html", "text/html; charset=utf-8":
		return ".html"
	case "application/json":
		return ".json"
	default:
		return ""
	}
}
