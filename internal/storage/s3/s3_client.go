package s3

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"scandesk/internal/config"
	"scandesk/internal/port"
)

type archiveBucket struct {
	bucket    string
	presigner *s3.PresignClient
	uploader  *manager.Uploader
}

// NewS3Client creates an S3-backed ObjectStorage for the example archive.
// Objects without a bucket go to cfg.Bucket. A custom endpoint (MinIO,
// LocalStack) switches to path-style addressing.
func NewS3Client(cfg *config.ArchiveConfig) (port.ObjectStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config for archive: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &archiveBucket{
		bucket:    cfg.Bucket,
		presigner: s3.NewPresignClient(client),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 1
		}),
	}, nil
}

func loadOptions(cfg *config.ArchiveConfig) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	return opts
}

func (b *archiveBucket) bucketFor(name string) string {
	if name == "" {
		return b.bucket
	}
	return name
}

func (b *archiveBucket) Upload(ctx context.Context, obj port.ArchiveObject) (*port.ArchivedObject, error) {
	bucket := b.bucketFor(obj.Bucket)
	out, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(obj.Key),
		Body:        obj.Body,
		ContentType: aws.String(obj.ContentType),
		Metadata:    obj.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("archiving s3://%s/%s: %w", bucket, obj.Key, err)
	}

	return &port.ArchivedObject{
		Location: out.Location,
		ETag:     aws.ToString(out.ETag),
	}, nil
}

func (b *archiveBucket) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	disposition := fmt.Sprintf(`attachment; filename="%s"`, path.Base(key))
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(b.bucketFor(bucket)),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(disposition),
	}, s3.WithPresignExpires(time.Duration(expirySeconds)*time.Second))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return req.URL, nil
}
