package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadAWSConfig loads the default AWS config. AWS_REGION and the usual
// credential variables are honored by the SDK.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}

// EndpointOverride returns the custom endpoint for LocalStack-style setups,
// preferring AWS_SNS_ENDPOINT over AWS_ENDPOINT.
func EndpointOverride() string {
	if ep := os.Getenv("AWS_SNS_ENDPOINT"); ep != "" {
		return ep
	}
	return os.Getenv("AWS_ENDPOINT")
}
