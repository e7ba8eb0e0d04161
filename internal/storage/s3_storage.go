package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	ArchiveTemplate(ctx context.Context, userID int64, filename string, data []byte) (string, error)
}

// objectPutter is the part of *s3.Client used here.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Storage struct {
	bucket string
	client objectPutter
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Storage(cfg.AwsS3Bucket, s3.NewFromConfig(awsCfg)), nil
}

func newS3Storage(bucket string, client objectPutter) *s3Storage {
	return &s3Storage{bucket: bucket, client: client}
}

// TemplateKey builds the object key of an archived template upload.
func TemplateKey(userID int64, filename string) string {
	name := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	return fmt.Sprintf("templates/%d/%s_%s", userID, uuid.NewString(), name)
}

// ArchiveTemplate stores a raw template upload and returns its key.
func (s *s3Storage) ArchiveTemplate(ctx context.Context, userID int64, filename string, data []byte) (string, error) {
	key := TemplateKey(userID, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(xlsxContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive template to %s: %w", key, err)
	}
	utils.Info("template archived", map[string]any{"key": key, "size": len(data)})
	return key, nil
}
