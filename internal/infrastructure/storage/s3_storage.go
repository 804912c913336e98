// Package storage issues time-limited download URLs for bundle artifacts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/otahub/backend/internal/domain/catalog"
	"github.com/otahub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Signer returns a URL the caller can fetch the bundle's artifact from
type Signer interface {
	SignDownload(ctx context.Context, b catalog.OwnedBundle) (string, error)
}

// S3Signer presigns GET requests against an S3-compatible bucket (AWS S3, R2, MinIO).
// Keys are always scoped under the bundle's owning org.
type S3Signer struct {
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
	timeout       time.Duration
	logger        *zap.Logger
}

// S3SignerOption is a functional option for configuring S3Signer
type S3SignerOption func(*S3Signer)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3SignerOption {
	return func(s *S3Signer) {
		s.logger = logger
	}
}

// NewS3Signer creates a signer from configuration
func NewS3Signer(ctx context.Context, cfg *config.StorageConfig, opts ...S3SignerOption) (*S3Signer, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	s := &S3Signer{
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		expiry:        cfg.PresignExpiry,
		timeout:       cfg.SignTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.expiry <= 0 {
		s.expiry = 15 * time.Minute
	}
	return s, nil
}

// SignDownload implements Signer
func (s *S3Signer) SignDownload(ctx context.Context, b catalog.OwnedBundle) (string, error) {
	key, err := b.ObjectKey()
	if err != nil {
		return "", err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		s.logger.Error("presign failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

// Bucket returns the bucket name
func (s *S3Signer) Bucket() string {
	return s.bucket
}

var _ Signer = (*S3Signer)(nil)
