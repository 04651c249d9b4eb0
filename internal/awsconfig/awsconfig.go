// Package awsconfig builds AWS SDK configuration from credential files.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/datar-psa/genaivalidator/api"
)

// DefaultRegion is used when neither the caller nor the credentials name a region.
const DefaultRegion = "us-east-1"

// Load builds an AWS config from explicit credentials, falling back to the default chain
// (environment, shared config, IAM role). region wins over creds.Region.
func Load(ctx context.Context, creds *api.AWSCredentials, region string) (aws.Config, error) {
	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(Region(creds, region)),
	}
	if creds != nil && creds.AccessKey != "" && creds.SecretKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, creds.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Region resolves the effective region.
func Region(creds *api.AWSCredentials, region string) string {
	if region != "" {
		return region
	}
	if creds != nil && creds.Region != "" {
		return creds.Region
	}
	return DefaultRegion
}
