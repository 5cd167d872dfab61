package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

// StoreConfig locates the S3-compatible bucket holding mint metadata.
type StoreConfig struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	PublicBaseURL   string // defaults to endpoint/bucket
}

// MetadataStore uploads achievement metadata documents.
type MetadataStore struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewMetadataStore(ctx context.Context, sc StoreConfig) (*MetadataStore, error) {
	if sc.Bucket == "" || sc.Endpoint == "" {
		return nil, fmt.Errorf("metadata store needs a bucket and an endpoint")
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			sc.AccessKeyID, sc.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(sc.Endpoint)
		o.UsePathStyle = true
	})

	base := sc.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(sc.Endpoint, "/") + "/" + sc.Bucket
	}
	return &MetadataStore{client: client, bucket: sc.Bucket, publicBase: strings.TrimRight(base, "/")}, nil
}

// PutJSON uploads body under key and returns its public URL.
func (m *MetadataStore) PutJSON(ctx context.Context, key string, body []byte) (string, error) {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}
	return fmt.Sprintf("%s/%s", m.publicBase, key), nil
}

// MetadataKey is the object key of an achievement's metadata document.
func MetadataKey(participantID, kind, recordID string) string {
	return fmt.Sprintf("achievements/%s/%s.json", slug.Make(participantID), slug.Make(kind+"-"+recordID))
}
