// Package storage keeps user profile images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/google/uuid"
)

// ImageStore uploads an object and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type S3ImageStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3ImageStore builds a path-style client for the configured endpoint,
// which works for both MinIO and AWS.
func NewS3ImageStore(ctx context.Context, c *sc.Config) (*S3ImageStore, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3ImageStore{
		client:   client,
		bucket:   c.S3Bucket,
		endpoint: strings.TrimRight(c.S3BaseEndpoint, "/"),
	}, nil
}

// ImageKey returns a fresh object key under the user's prefix.
func ImageKey(userID string) string {
	return fmt.Sprintf("users/%s/%v", url.PathEscape(userID), uuid.New())
}

func (s *S3ImageStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := putObject(s.client, ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	return s.ObjectURL(key), nil
}

// ObjectURL is the path-style URL of key in the store's bucket.
func (s *S3ImageStore) ObjectURL(key string) string {
	return s.endpoint + "/" + s.bucket + "/" + key
}
