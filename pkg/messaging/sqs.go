package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue sends to and receives from a single queue. Queues whose URL ends
// in ".fifo" get a message group and deduplication id on every send.
type SQSQueue struct {
	client SQSAPI
	url    string
	fifo   bool
}

func NewSQSQueue(client SQSAPI, url string) *SQSQueue {
	return &SQSQueue{
		client: client,
		url:    url,
		fifo:   strings.HasSuffix(url, ".fifo"),
	}
}

func (q *SQSQueue) URL() string {
	return q.url
}

func (q *SQSQueue) Send(ctx context.Context, env Envelope) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(string(env.Body)),
	}
	if q.fifo {
		if env.GroupID == "" || env.DedupID == "" {
			return fmt.Errorf("fifo queue %s requires group and deduplication ids", q.url)
		}
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

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.url),
		MaxNumberOfMessages:   int32(maxMessages),
		WaitTimeSeconds:       int32(wait / time.Second),
		AttributeNames:        []types.QueueAttributeName{types.QueueAttributeNameAll},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          []byte(aws.ToString(m.Body)),
			GroupID:       m.Attributes[string(types.MessageSystemAttributeNameMessageGroupId)],
		}
		if count, err := strconv.Atoi(m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil {
			msg.ReceiveCount = count
		}
		if len(m.MessageAttributes) > 0 {
			msg.Attributes = make(map[string]string, len(m.MessageAttributes))
			for key, value := range m.MessageAttributes {
				msg.Attributes[key] = aws.ToString(value.StringValue)
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, msg Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}
