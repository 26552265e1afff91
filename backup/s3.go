// Package backup mirrors the cache document to S3 so deployments without a
// durable volume can survive restarts. Failures are logged and non-fatal:
// the local file remains the canonical copy.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Config holds optional overrides for the standard AWS config chain.
type Config struct {
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

// Backup pushes and restores one object in one bucket.
type Backup struct {
	client *s3.Client
	bucket string
	key    string
}

// New creates a backup target using the default AWS configuration chain,
// with optional overrides from cfg.
func New(ctx context.Context, bucket, key string, cfg Config) (*Backup, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Backup{client: client, bucket: bucket, key: key}, nil
}

// FromEnv builds a backup target from BACKUP_S3_BUCKET and friends.
// Returns nil when backups are not configured.
func FromEnv(ctx context.Context) (*Backup, error) {
	bucket := strings.TrimSpace(os.Getenv("BACKUP_S3_BUCKET"))
	if bucket == "" {
		return nil, nil
	}
	key := strings.TrimSpace(os.Getenv("BACKUP_S3_KEY"))
	if key == "" {
		key = "policywatch/cache.json"
	}
	cfg := Config{
		Region:       strings.TrimSpace(os.Getenv("BACKUP_S3_REGION")),
		Profile:      strings.TrimSpace(os.Getenv("BACKUP_S3_PROFILE")),
		UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("BACKUP_S3_USE_PATH_STYLE")), "true"),
	}
	return New(ctx, bucket, key, cfg)
}

// Push uploads the cache document.
func (b *Backup) Push(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading backup to s3://%s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

// PushFile uploads the file at path, typically right after an atomic save.
func (b *Backup) PushFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s for backup: %w", path, err)
	}
	return b.Push(ctx, data)
}

// Restore downloads the backed-up cache document. A missing object is not
// an error; it returns (nil, nil) so a cold start proceeds normally.
func (b *Backup) Restore(ctx context.Context) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("restoring backup from s3://%s/%s: %w", b.bucket, b.key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func isNotFound(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
