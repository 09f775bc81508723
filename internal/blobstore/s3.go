package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store writes NZB blobs to {bucket}/nzb/{guid}.nzb on any S3-compatible
// object store and serves them back through a configurable public URL
// prefix rather than presigned/authenticated GETs, since NZB payloads
// carry no secrets of their own.
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// NewS3 builds an S3Store. accessKey/secretKey/endpoint are optional; an
// empty accessKey falls back to the default AWS credential chain, and an
// empty endpoint targets AWS S3 itself rather than an S3-compatible
// alternative (e.g. MinIO, Backblaze B2).
func NewS3(ctx context.Context, bucket, region, endpoint, accessKey, secretKey, publicBase string) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: bucket, publicBase: publicBase}, nil
}

func (s *S3Store) key(guid string) string {
	return "nzb/" + guid + ".nzb"
}

func (s *S3Store) Put(ctx context.Context, guid string, data []byte) (string, error) {
	key := s.key(guid)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: put %s: %w", guid, err)
	}
	return s.publicBase + "/" + key, nil
}

func (s *S3Store) Get(ctx context.Context, guid string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(guid)),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get %s: %w", guid, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
