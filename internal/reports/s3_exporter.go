package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"villa-backend/internal/config"
	"villa-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of *s3.Client the exporter uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter writes reconciliation reports as JSON objects to an S3-compatible bucket
type S3Exporter struct {
	Client ObjectPutter
	Bucket string
	Prefix string
}

// NewS3Exporter builds a client for the configured endpoint. An empty endpoint means AWS itself.
func NewS3Exporter(ctx context.Context, cfg *config.Config) (*S3Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Reports.Region),
	}
	if cfg.Reports.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Reports.AccessKey,
			cfg.Reports.SecretKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure report storage: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Reports.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Reports.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Exporter{Client: client, Bucket: cfg.Reports.Bucket, Prefix: cfg.Reports.Prefix}, nil
}

// ObjectKey names the object a report is stored under
func (e *S3Exporter) ObjectKey(report *models.ReconciliationReport) string {
	return fmt.Sprintf("%sreconciliation_%s.json", e.Prefix, report.GeneratedAt.UTC().Format("20060102_150405"))
}

func (e *S3Exporter) Export(ctx context.Context, report *models.ReconciliationReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := e.ObjectKey(report)
	_, err = e.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	log.Printf("[Reports] Uploaded %s (%d pending failures)", key, report.PendingCount)
	return fmt.Sprintf("s3://%s/%s", e.Bucket, key), nil
}
