// Package data loads development examples from S3 or local files.
package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/internal/awsconfig"
)

// S3Client is the subset of *s3.Client used by S3Extractor.
type S3Client interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates the development data.
type S3Config struct {
	Bucket string
	Prefix string
	// Region defaults to Credentials.Region, then us-east-1
	Region string
	// Credentials are optional; nil uses the default AWS credential chain
	Credentials *api.AWSCredentials
	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack
	Endpoint     string
	UsePathStyle bool
}

// ExtractorOptions configures an S3Extractor
type ExtractorOptions struct {
	client S3Client
	logger *slog.Logger
}

// WithS3Client replaces the S3 client, mainly for tests
func WithS3Client(client S3Client) func(*ExtractorOptions) {
	return func(opts *ExtractorOptions) {
		opts.client = client
	}
}

// WithLogger sets the logger used for skipped objects
func WithLogger(logger *slog.Logger) func(*ExtractorOptions) {
	return func(opts *ExtractorOptions) {
		opts.logger = logger
	}
}

// S3Extractor reads development records from JSON objects under a bucket prefix.
type S3Extractor struct {
	client S3Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Extractor creates an S3Extractor for cfg.
func NewS3Extractor(ctx context.Context, cfg S3Config, opts ...func(*ExtractorOptions)) (*S3Extractor, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var options ExtractorOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	client := options.client
	if client == nil {
		awsCfg, err := awsconfig.Load(ctx, cfg.Credentials, cfg.Region)
		if err != nil {
			return nil, err
		}
		endpoint := strings.TrimSpace(cfg.Endpoint)
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
			if cfg.UsePathStyle {
				o.UsePathStyle = true
			}
		})
	}

	return &S3Extractor{
		client: client,
		bucket: bucket,
		prefix: cfg.Prefix,
		logger: options.logger,
	}, nil
}

// Extract lists every object under the prefix and returns the records of the ".json" ones,
// in listing order. An object holds either one record or a list of records.
//
// Objects that cannot be read or parsed are logged and skipped. A listing failure is logged
// and the records gathered so far are returned.
func (e *S3Extractor) Extract(ctx context.Context) ([]api.Record, error) {
	var records []api.Record

	paginator := s3.NewListObjectsV2Paginator(e.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(e.bucket),
		Prefix: aws.String(e.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Warn("listing development data failed", "bucket", e.bucket, "prefix", e.prefix, "error", err)
			break
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}

			objRecords, err := e.readObject(ctx, key)
			if err != nil {
				e.logger.Warn("skipping development data object", "bucket", e.bucket, "key", key, "error", err)
				continue
			}
			records = append(records, objRecords...)
		}
	}

	e.logger.Info("extracted development data", "bucket", e.bucket, "prefix", e.prefix, "records", len(records))
	return records, nil
}

func (e *S3Extractor) readObject(ctx context.Context, key string) ([]api.Record, error) {
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", api.ErrStorageRead, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", api.ErrStorageRead, key, err)
	}

	records, err := ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", api.ErrStorageRead, key, err)
	}
	return records, nil
}
