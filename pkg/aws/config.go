package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// LoadAWSConfig loads the default AWS config for region. When
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY are set they are used as static
// credentials, which is what LocalStack expects.
func LoadAWSConfig(ctx context.Context, region string) (sdkaws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN")),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}

// Endpoint returns the endpoint override for service ("DYNAMODB", "SQS",
// ...), checking AWS_<SERVICE>_ENDPOINT before AWS_ENDPOINT. Empty means
// the real AWS endpoint.
func Endpoint(service string) string {
	if v := os.Getenv("AWS_" + service + "_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv("AWS_ENDPOINT")
}
