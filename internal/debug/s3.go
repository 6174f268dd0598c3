package debug

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"omr-reader/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gocv.io/x/gocv"
)

// Uploader is the part of manager.Uploader the S3 sink needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads images to a bucket under a key prefix.
type S3Sink struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3Sink builds an S3 sink from the debug configuration.
func NewS3Sink(ctx context.Context, cfg *config.S3Config) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return NewS3SinkWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix), nil
}

// NewS3SinkWithUploader builds an S3 sink around an existing uploader.
func NewS3SinkWithUploader(u Uploader, bucket, prefix string) *S3Sink {
	return &S3Sink{uploader: u, bucket: bucket, prefix: prefix}
}

// Write implements Sink. It returns the object's s3:// URI.
func (s *S3Sink) Write(ctx context.Context, name string, mat gocv.Mat) (string, error) {
	data, contentType, err := encode(name, mat)
	if err != nil {
		return "", err
	}

	key := path.Join(s.prefix, name)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// New picks the sink the configuration asks for: S3 when a bucket is set,
// a directory when one is set, otherwise a NopSink.
func New(ctx context.Context, cfg config.DebugConfig) (Sink, error) {
	switch {
	case cfg.S3.Bucket != "":
		s, err := NewS3Sink(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfg.Dir != "":
		return DirSink{Dir: cfg.Dir}, nil
	default:
		return NopSink{}, nil
	}
}
