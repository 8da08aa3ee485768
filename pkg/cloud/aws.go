package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/loanflow/loanflow/pkg/config"
)

// Clients holds the AWS service clients shared by the binaries. They are
// built from one loaded configuration and honour the optional endpoint
// override.
type Clients struct {
	SQS *sqs.Client
	SNS *sns.Client
	SES *ses.Client
}

func NewClients(ctx context.Context, cfg config.AWSConfig) (*Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := endpointOverride(cfg.Endpoint)
	return &Clients{
		SQS: sqs.NewFromConfig(awsCfg, func(o *sqs.Options) { o.BaseEndpoint = endpoint }),
		SNS: sns.NewFromConfig(awsCfg, func(o *sns.Options) { o.BaseEndpoint = endpoint }),
		SES: ses.NewFromConfig(awsCfg, func(o *ses.Options) { o.BaseEndpoint = endpoint }),
	}, nil
}

func endpointOverride(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}
