package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"pagesync/internal/cms"
)

// S3Store implements cms.Store on an S3 bucket. The revision token is the
// object ETag; conditional writes use If-Match / If-None-Match so the
// bucket verifies the token atomically.
//
// S3 offers no conditional delete on general-purpose buckets, so Delete
// checks the ETag with a HeadObject first. The check-then-delete pair is
// not atomic; the window is accepted for the media-cleanup use this
// backend serves.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // non-empty for S3-compatible servers and tests
}

// NewS3Store creates a store over the given bucket and key prefix.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// key maps a store path to an object key under the configured prefix.
func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + path
}

// List returns the entries directly under dir ("" for the root).
func (s *S3Store) List(ctx context.Context, dir string) ([]cms.Entry, error) {
	prefix := s.key("")
	if dir != "" {
		prefix = s.key(strings.TrimSuffix(dir, "/") + "/")
	}

	var entries []cms.Entry
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, mapS3Error(err, false))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			rel := strings.TrimPrefix(key, s.key(""))
			rel = strings.TrimPrefix(rel, "/")
			entries = append(entries, cms.NewEntry(rel))
		}
	}
	return entries, nil
}

// Read returns the object content and its ETag.
func (s *S3Store) Read(ctx context.Context, path string) (*cms.Revision, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, mapS3Error(err, false))
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", path, err)
	}

	return &cms.Revision{Path: path, Content: content, Token: etagToken(out.ETag)}, nil
}

// Write stores content at path. A non-empty token becomes an If-Match
// condition; an empty token becomes If-None-Match: * so creates fail when
// the key already exists.
func (s *S3Store) Write(ctx context.Context, path string, content []byte, _, token string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Body:   bytes.NewReader(content),
	}
	if token == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(`"` + token + `"`)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, mapS3Error(err, token == ""))
	}
	return etagToken(out.ETag), nil
}

// Delete removes path after verifying the token against the current ETag.
func (s *S3Store) Delete(ctx context.Context, path, _, token string) error {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, mapS3Error(err, false))
	}
	if etagToken(head.ETag) != token {
		return fmt.Errorf("deleting %s: %w", path, cms.ErrConflict)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	}); err != nil {
		return fmt.Errorf("deleting %s: %w", path, mapS3Error(err, false))
	}
	return nil
}

// etagToken strips the surrounding quotes S3 puts on ETag values.
func etagToken(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}

// mapS3Error translates S3 API failures into the cms sentinels.
func mapS3Error(err error, creating bool) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return fmt.Errorf("%w: %v", cms.ErrNotFound, err)
	case "PreconditionFailed", "ConditionalRequestConflict":
		if creating {
			return fmt.Errorf("%w: %v", cms.ErrAlreadyExists, err)
		}
		return fmt.Errorf("%w: %v", cms.ErrConflict, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return fmt.Errorf("%w: %v", cms.ErrAuthFailure, err)
	default:
		return err
	}
}

var _ cms.Store = (*S3Store)(nil)
