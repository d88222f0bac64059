package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates the bucket the archive writes to.
type S3Config struct {
	// Bucket must be set.
	Bucket string
	// Prefix narrows the archive to a key prefix inside the bucket.
	Prefix string
	// Region overrides the region from the default AWS chain.
	Region string
	// Endpoint points at an S3-compatible provider such as R2 or
	// MinIO. Empty means AWS.
	Endpoint string
	// UsePathStyle forces path-style addressing. Most S3-compatible
	// providers need it.
	UsePathStyle bool
}

// Validate reports whether the configuration names a bucket.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("archive: s3 bucket is required")
	}
	return nil
}

// ParseS3Path splits an archive path of the form "bucket/prefix" or
// "bucket". A leading "s3://" scheme is tolerated.
func ParseS3Path(path string) (bucket, prefix string) {
	path = strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// s3Factory builds a Lode store factory backed by S3.
// Uses the AWS SDK default credential chain (env vars, shared config,
// IAM role).
func s3Factory(s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	s3Client := s3.NewFromConfig(awsConfig, s3Opts...)

	return func() (lode.Store, error) {
		return lodes3.New(s3Client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}, nil
}
