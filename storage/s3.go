package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains S3-compatible object storage configuration
type S3Config struct {
	Endpoint        string // S3 endpoint URL (e.g., MinIO endpoint)
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool // Required for MinIO
}

// S3Archive stores page snapshots in S3-compatible object storage.
type S3Archive struct {
	client *s3.Client
	bucket string
}

// NewS3Archive creates a new S3-backed Archive instance. Without static
// credentials the default AWS credential chain is used.
func NewS3Archive(config S3Config) (*S3Archive, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var creds aws.CredentialsProvider
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")
	} else {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws credentials: %w", err)
		}
		creds = cfg.Credentials
	}

	opts := s3.Options{
		Region:       config.Region,
		Credentials:  creds,
		UsePathStyle: config.UsePathStyle,
	}
	if config.Endpoint != "" {
		opts.BaseEndpoint = aws.String(config.Endpoint)
	}

	return &S3Archive{
		client: s3.New(opts),
		bucket: config.Bucket,
	}, nil
}

// SaveSnapshot uploads a fetched page body to the bucket.
// Returns the object key.
func (a *S3Archive) SaveSnapshot(content, name string) (string, error) {
	now := time.Now()
	key := path.Join("snapshots",
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		name+".html")

	_, err := a.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot to s3: %w", err)
	}

	return key, nil
}

// ReadSnapshot downloads an archived snapshot from the bucket
func (a *S3Archive) ReadSnapshot(key string) (string, error) {
	out, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download snapshot from s3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot body: %w", err)
	}

	return string(data), nil
}

// DeleteSnapshot deletes an archived snapshot from the bucket
func (a *S3Archive) DeleteSnapshot(key string) error {
	_, err := a.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot from s3: %w", err)
	}

	return nil
}
