package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

// S3Options configures the S3 compatible backend (AWS S3, Cloudflare R2, MinIO)
type S3Options struct {
	Bucket string

	// Prefix is prepended to every key, without a trailing slash
	Prefix string

	// Endpoint overrides the service endpoint, e.g.
	// https://<account>.r2.cloudflarestorage.com. Setting it also switches to
	// path-style addressing.
	Endpoint string

	// Region defaults to "auto", which R2 expects
	Region string

	// Profile selects a shared config profile; empty uses the default chain
	Profile string
}

// PutObjectAPI is the subset of the S3 client the store uses
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads objects with PutObject
type S3Store struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Store loads AWS configuration from the environment and shared config
// files and creates an S3 client for opts.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New(errors.ErrCodePublishStoreConfig, "s3 store bucket is not set").
			WithSuggestion("Set store.s3.bucket in the ciforge config")
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePublishStoreConfig, "load AWS configuration", err).
			WithSuggestion("Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY or configure a shared profile")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client PutObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey returns the bucket key for a store key
func (s *S3Store) ObjectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// Upload implements Uploader
func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	objectKey := s.ObjectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentTypeOrDefault(contentType)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, objectKey, err)
	}
	return nil
}
