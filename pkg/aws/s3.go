package aws

import (
	"bytes"
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader stores blobs in a single bucket.
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
}

func NewS3Uploader(cfg sdkaws.Config, bucket string) *S3Uploader {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := Endpoint("S3"); ep != "" {
			o.BaseEndpoint = sdkaws.String(ep)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{uploader: manager.NewUploader(client), bucket: bucket}
}

// Upload writes body under key and returns the s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(u.bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: sdkaws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s/%s: %w", u.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
