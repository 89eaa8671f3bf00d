package filehost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/pkg/config"
)

// S3Deleter removes internally hosted files from an S3-compatible bucket.
type S3Deleter struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Deleter builds a client from static credentials when given, else from
// the default AWS chain. A custom endpoint (MinIO) switches to path-style.
func NewS3Deleter(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Deleter, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Deleter{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger.Named("s3-deleter"),
	}, nil
}

// Delete removes the object for ref. Deleting a missing key succeeds.
func (d *S3Deleter) Delete(ctx context.Context, ref string) error {
	key := ref
	if d.prefix != "" {
		key = path.Join(d.prefix, ref)
	}

	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	d.logger.Debug("deleted object", zap.String("key", key))
	return nil
}

// HTTPDeleter removes files through a PixelDrain-style REST API:
// DELETE {base}/api/file/{ref} with the API key as basic auth password.
type HTTPDeleter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPDeleter creates a deleter for the file service at cfg.BaseURL.
func NewHTTPDeleter(cfg config.HTTPHostConfig, timeout time.Duration, logger *zap.Logger) *HTTPDeleter {
	return &HTTPDeleter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("http-deleter"),
	}
}

// Delete treats 404 as already deleted.
func (d *HTTPDeleter) Delete(ctx context.Context, ref string) error {
	endpoint := d.baseURL + "/api/file/" + url.PathEscape(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if d.apiKey != "" {
		req.SetBasicAuth("", d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		d.logger.Debug("file already gone", zap.String("ref", ref))
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("delete %s: unexpected status code: %d", ref, resp.StatusCode)
	}
	return nil
}

// NopDeleter is used when no file host is configured. Jobs complete without
// touching anything.
type NopDeleter struct {
	Logger *zap.Logger
}

func (d NopDeleter) Delete(ctx context.Context, ref string) error {
	if d.Logger != nil {
		d.Logger.Info("no file host configured, skipping delete", zap.String("ref", ref))
	}
	return nil
}
