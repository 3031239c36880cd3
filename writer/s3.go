package writer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "propflow/config"
	"propflow/logger"
)

// Uploader pushes run artifacts (report, workbook, parquet archives) to
// an S3 bucket when the storage backend is enabled.
type Uploader struct {
	config *appconfig.Config
	client *s3.Client
	log    *logger.Log
}

func NewUploader(ctx context.Context, cfg *appconfig.Config) (*Uploader, error) {
	log := logger.GetLogger()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsCfg)

	log.WithComponent("uploader").WithFields(logger.Fields{
		"bucket": cfg.Storage.S3.Bucket,
		"region": cfg.Storage.S3.Region,
	}).Info("s3 uploader initialized")

	return &Uploader{config: cfg, client: client, log: log}, nil
}

// UploadFile puts a local artifact under the configured prefix, keyed by
// snapshot time so successive runs never overwrite each other.
func (u *Uploader) UploadFile(ctx context.Context, path string, snapshotTime time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	name := filepath.Base(path)
	key := filepath.ToSlash(filepath.Join(
		u.config.Storage.S3.Prefix,
		snapshotTime.UTC().Format("2006/01/02"),
		snapshotTime.UTC().Format("150405")+"_"+name,
	))

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"propflow-version": u.config.Propflow.Version,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", u.config.Storage.S3.Bucket, err)
	}

	logger.LogPerformanceEntry(u.log.WithComponent("uploader"), "uploader", "upload_file", time.Since(start), logger.Fields{
		"key":   key,
		"bytes": len(data),
	})

	return nil
}
