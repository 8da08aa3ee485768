package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSTopic struct {
	client SNSAPI
	arn    string
	fifo   bool
}

func NewSNSTopic(client SNSAPI, arn string) *SNSTopic {
	return &SNSTopic{
		client: client,
		arn:    arn,
		fifo:   strings.HasSuffix(arn, ".fifo"),
	}
}

func (t *SNSTopic) Send(ctx context.Context, env Envelope) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(t.arn),
		Message:  aws.String(string(env.Body)),
	}
	// FIFO topics reject a subject.
	if env.Subject != "" && !t.fifo {
		input.Subject = aws.String(truncateSubject(env.Subject))
	}
	if t.fifo {
		input.MessageGroupId = aws.String(env.GroupID)
		input.MessageDeduplicationId = aws.String(env.DedupID)
	}
	if len(env.Attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(env.Attributes))
		for key, value := range env.Attributes {
			input.MessageAttributes[key] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(value),
			}
		}
	}

	if _, err := t.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// SNS limits subjects to 100 characters. Truncation keeps whole runes.
func truncateSubject(subject string) string {
	const maxSubject = 100
	count := 0
	for i := range subject {
		if count == maxSubject {
			return subject[:i]
		}
		count++
	}
	return subject
}
