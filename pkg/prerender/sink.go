package prerender

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink receives generated files. Keys are slash-separated and relative.
type Sink interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// cleanKey rejects keys that are absolute or escape the output root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || strings.HasPrefix(key, "/") || cleaned != key {
		return "", fmt.Errorf("invalid output key %q", key)
	}
	return cleaned, nil
}

// DirSink writes files below a local directory.
type DirSink struct {
	root string
}

// NewDirSink creates root if needed.
func NewDirSink(root string) (*DirSink, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &DirSink{root: root}, nil
}

// Root returns the output directory.
func (s *DirSink) Root() string { return s.root }

// Put writes body to root/key, creating parent directories.
func (s *DirSink) Put(_ context.Context, key, _ string, body []byte) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// PutObjectAPI is the subset of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads files to an S3 bucket.
//
// Example usage:
//
//	client := prerender.NewS3Client(prerender.S3Options{Region: "eu-west-1"})
//	sink := prerender.NewS3Sink(client, "my-site", "releases/b1/")
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink creates a sink writing to bucket below prefix.
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads body as prefix+key.
func (s *S3Sink) Put(ctx context.Context, key, contentType string, body []byte) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client. A custom endpoint switches to path-style
// addressing, as S3-compatible stores expect. Without static keys requests
// are sent unsigned.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{Region: opts.Region}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	}
	if opts.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Source:          "staticrouter",
		}
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(o)
}
