// Package imagestore archives uploaded receipt images to an
// S3-compatible bucket (Cloudflare R2). Archival is optional: when the
// endpoint is not configured the service runs without it, and an upload
// failure never blocks receipt extraction.
package imagestore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config is read from the environment by the caller.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	BaseURL   string
}

// Enabled reports whether archival is configured at all.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Client uploads receipt images to one bucket.
type Client struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// New builds an S3 client pointed at the configured R2 endpoint.
func New(ctx context.Context, c Config) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.Endpoint)
	})

	return &Client{
		client:  client,
		bucket:  c.Bucket,
		baseURL: c.BaseURL,
	}, nil
}

// Upload stores the image under the given key and returns its public URL.
func (c *Client) Upload(ctx context.Context, key string, image []byte, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(image),
		ContentType: &contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", c.baseURL, key), nil
}
