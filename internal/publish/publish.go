// =============================================================================
// Sales Validator - Cleaned Output Publisher
// =============================================================================
//
// This module uploads the cleaned file to S3-compatible object storage
// (AWS S3, MinIO, localstack) after a successful run.
//
// CONFIGURATION:
//   publish:
//     bucket: sales-clean          # enables publishing
//     key: weekly/cleaned.csv      # default: output file name
//     region: us-east-1
//     endpoint: http://minio:9000  # optional
//     path_style: true             # required by most MinIO setups
//
// =============================================================================

package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ginjaninja78/sales-validator/internal/config"
)

// ContentType is sent with every upload.
const ContentType = "text/csv"

// FingerprintMetadataKey carries the output fingerprint on the object.
const FingerprintMetadataKey = "fingerprint"

// Publisher uploads files to a single bucket.
type Publisher struct {
	client *s3.Client
	bucket string
	key    string
}

// Object describes an uploaded file.
type Object struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// New builds a Publisher from the publish settings.
//
// PARAMETERS:
//   - ctx: Context for loading the AWS configuration.
//   - settings: Bucket, region, endpoint and credentials.
//   - optFns: Extra S3 client options, applied last.
//
// RETURNS:
//   - The publisher.
//   - An error if no bucket is configured or the AWS configuration fails
//     to load.
func New(ctx context.Context, settings config.PublishSettings, optFns ...func(*s3.Options)) (*Publisher, error) {
	if settings.Bucket == "" {
		return nil, fmt.Errorf("publish bucket required")
	}
	region := settings.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if settings.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if settings.PathStyle {
			o.UsePathStyle = true
		}
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &Publisher{client: client, bucket: settings.Bucket, key: settings.Key}, nil
}

// Key returns the object key used for path.
func (p *Publisher) Key(path string) string {
	if p.key != "" {
		return p.key
	}
	return filepath.Base(path)
}

// Publish uploads the file at path, replacing any existing object.
//
// PARAMETERS:
//   - ctx: Context for the upload.
//   - path: The cleaned output file.
//   - fingerprint: Stored as object metadata when non-empty.
//
// RETURNS:
//   - The uploaded object.
//   - An error if the file cannot be read or the upload fails.
func (p *Publisher) Publish(ctx context.Context, path, fingerprint string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open output for publishing: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	key := p.Key(path)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType),
	}
	if fingerprint != "" {
		input.Metadata = map[string]string{FingerprintMetadataKey: fingerprint}
	}

	out, err := p.client.PutObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
	}

	return &Object{
		Bucket: p.bucket,
		Key:    key,
		Size:   info.Size(),
		ETag:   aws.ToString(out.ETag),
	}, nil
}
