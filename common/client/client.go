// Package client owns the outbound AWS service clients. They are built once
// at startup and shared by all requests; the SDK clients are safe for
// concurrent use.
package client

import (
	"context"
	"os"

	"github.com/Laisky/errors/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/fuchsia74/bedrock-gateway/common/config"
)

var (
	// BedrockRuntime is the invocation client (InvokeModel, Converse, streaming variants).
	BedrockRuntime *bedrockruntime.Client
	// Bedrock is the control-plane client used for model and profile discovery.
	Bedrock *bedrock.Client
	// SecretsManager serves the gateway credential reference.
	SecretsManager *secretsmanager.Client
)

// Init loads the AWS configuration and constructs the shared service clients.
// Static credentials from the environment take precedence so the gateway can
// run outside AWS; otherwise the default provider chain applies (IAM role,
// instance profile, SSO, ...).
func Init(ctx context.Context) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.AWSRegion),
	}
	if ak, sk := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); ak != "" && sk != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, os.Getenv("AWS_SESSION_TOKEN"))))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "load aws config")
	}

	BedrockRuntime = bedrockruntime.NewFromConfig(awsCfg)
	Bedrock = bedrock.NewFromConfig(awsCfg)
	SecretsManager = secretsmanager.NewFromConfig(awsCfg)
	return nil
}

// Region reports the region the runtime client is bound to.
func Region() string {
	if BedrockRuntime == nil {
		return config.AWSRegion
	}
	return BedrockRuntime.Options().Region
}
