package filestorage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"site-entry/pkg/config"
)

type S3FileStorage struct {
	client       *s3.Client
	bucket       string
	region       string
	publicDomain string
}

func NewS3FileStorage(ctx context.Context, cfg config.S3Config) (*S3FileStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3FileStorage{
		client:       s3.NewFromConfig(sdkConfig),
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		publicDomain: cfg.PublicDomain,
	}, nil
}

func (s *S3FileStorage) objectURL(key string) string {
	if s.publicDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.publicDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3FileStorage) keyFromURL(url string) string {
	if prefix := s.objectURL(""); strings.HasPrefix(url, prefix) {
		return strings.TrimPrefix(url, prefix)
	}
	return strings.TrimPrefix(url, "/")
}

func (s *S3FileStorage) Put(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	key := strings.TrimPrefix(path, "/")
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *S3FileStorage) Delete(ctx context.Context, url string) error {
	key := s.keyFromURL(url)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	return nil
}
