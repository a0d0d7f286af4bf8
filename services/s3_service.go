package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appConfig "github.com/kendall-kelly/customs-tracker-api/config"
	"go.uber.org/zap"
)

// BlobStore stores attachment files under a path inside one bucket
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) error
	// Remove deletes the given paths. Paths that do not exist are ignored.
	Remove(ctx context.Context, paths ...string) error
	// PresignedURL returns a time-limited download link for path
	PresignedURL(ctx context.Context, path string) (string, error)
}

// S3BlobStore keeps attachments in an S3 compatible bucket
type S3BlobStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	urlTTL  time.Duration
}

// NewS3BlobStore creates the store from the AWS settings of cfg.
// Setting AWS_S3_ENDPOINT targets an S3 compatible service such as MinIO.
func NewS3BlobStore(ctx context.Context, cfg *appConfig.Config) (*S3BlobStore, error) {
	options := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		options = append(options, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.AWSS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSS3Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.AttachmentURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &S3BlobStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.AWSS3Bucket,
		urlTTL:  ttl,
	}, nil
}

// Upload writes body to path
func (s *S3BlobStore) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Remove deletes paths in a single request
func (s *S3BlobStore) Remove(ctx context.Context, paths ...string) error {
	objects := make([]types.ObjectIdentifier, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(path)})
	}
	if len(objects) == 0 {
		return nil
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete files from S3: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("failed to delete %d file(s) from S3, first %s: %s",
			len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// PresignedURL generates a GET link that expires after the configured TTL
func (s *S3BlobStore) PresignedURL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	zap.L().Debug("generated presigned URL", zap.String("path", path), zap.Duration("ttl", s.urlTTL))
	return request.URL, nil
}
