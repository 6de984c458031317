package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"raffle-admin/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver moves a retired event's full record to cold storage.
type Archiver interface {
	Archive(ctx context.Context, doc *models.EventArchive) (string, error)
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible stores such as R2 or MinIO
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Archive uploads doc as JSON and returns the object key
func (a *S3Archiver) Archive(ctx context.Context, doc *models.EventArchive) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}
	key := ObjectKey(a.prefix, doc)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	return key, nil
}

// ObjectKey is <prefix>/<yyyy>/<mm>/<event id>.json, by creation month.
func ObjectKey(prefix string, doc *models.EventArchive) string {
	created := doc.Event.CreatedAt.UTC()
	return path.Join(prefix, created.Format("2006"), created.Format("01"), doc.Event.ID.String()+".json")
}
