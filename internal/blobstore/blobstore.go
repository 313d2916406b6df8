// Package blobstore archives raw scraped HTML so a reprocessing task
// (spec.md §4.14c) can re-run the extractor over historical pages
// without re-scraping them.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Credentials configures an S3/MinIO-compatible endpoint. Grounded on
// libaf/s3/minio.go's Credentials-driven client construction; fields
// inferred from that file's usage (AccessKeyId, SecretAccessKey,
// Endpoint, UseSsl) since the upstream oapi-generated type definition
// was not present in the retrieval pack.
type Credentials struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UseSSL          bool
	Bucket          string
}

// NewMinioClient builds a minio client from Credentials. Mirrors
// libaf/s3/minio.go's (*Credentials).NewMinioClient, including its
// tolerance for an endpoint supplied as a full URL.
func (c Credentials) NewMinioClient() (*minio.Client, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("blobstore: endpoint is required")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return nil, fmt.Errorf("blobstore: access key and secret are required")
	}

	endpoint, secure := parseEndpoint(c.Endpoint, c.UseSSL)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating S3 client for endpoint %s: %w", endpoint, err)
	}
	return client, nil
}

func parseEndpoint(endpoint string, useSSL bool) (string, bool) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
			return parsed.Host, parsed.Scheme == "https"
		}
	}
	return endpoint, useSSL
}

// Store archives and retrieves raw scraped HTML, keyed by an
// object key the scraper derives from (tenant, source URL).
type Store interface {
	PutHTML(ctx context.Context, key string, html string) error
	GetHTML(ctx context.Context, key string) (string, error)
}

// S3Store implements Store against an S3/MinIO-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store constructs an S3Store, ensuring the bucket exists.
func NewS3Store(ctx context.Context, creds Credentials) (*S3Store, error) {
	client, err := creds.NewMinioClient()
	if err != nil {
		return nil, err
	}
	if creds.Bucket == "" {
		return nil, fmt.Errorf("blobstore: bucket is required")
	}

	exists, err := client.BucketExists(ctx, creds.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", creds.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, creds.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", creds.Bucket, err)
		}
	}

	return &S3Store{client: client, bucket: creds.Bucket}, nil
}

func (s *S3Store) PutHTML(ctx context.Context, key string, html string) error {
	reader := bytes.NewReader([]byte(html))
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("archiving %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) GetHTML(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), nil
}
