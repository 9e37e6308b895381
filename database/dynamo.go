package database

import (
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	pkgaws "github.com/yashrajoria/pharmacy-agent/pkg/aws"
)

// NewDynamoClient honors AWS_DYNAMODB_ENDPOINT / AWS_ENDPOINT for LocalStack.
func NewDynamoClient(cfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if ep := pkgaws.Endpoint("DYNAMODB"); ep != "" {
			o.BaseEndpoint = sdkaws.String(ep)
		}
	})
}
