package uploader

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/aspect-export/internal/pkg/logger"
)

// s3API is the slice of the S3 client the backend uses, kept narrow so tests
// can substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options holds object-store connection settings. Endpoint is optional;
// when set (MinIO or another S3-compatible store) the client uses path-style
// addressing against it.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
}

// S3Backend uploads generated files as objects named fileName under the
// bucket given as target.
type S3Backend struct {
	client s3API
	log    *logger.Logger
}

// NewS3Backend builds an S3 backend from explicit credentials. Region
// defaults to us-east-1 when unset, matching the MinIO default.
func NewS3Backend(ctx context.Context, opts S3Options, log *logger.Logger) (*S3Backend, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("object-store credentials are not configured")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{client: client, log: log}, nil
}

// Upload puts the local file into the target bucket under fileName. The
// resolved path is "bucket/fileName".
func (b *S3Backend) Upload(ctx context.Context, localPath, target, fileName string) (*Result, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat local file: %w", err)
	}

	b.log.Info("uploader: uploading to object store",
		"bucket", target,
		"key", fileName,
		"file_size", info.Size(),
	)

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(target),
		Key:           aws.String(fileName),
		Body:          f,
		ContentType:   aws.String("text/plain"),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return nil, fmt.Errorf("putting object to bucket %s: %w", target, err)
	}

	resolved := target + "/" + fileName
	b.log.Info("uploader: object uploaded", "path", resolved)
	return &Result{Path: resolved}, nil
}
