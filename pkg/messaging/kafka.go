package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID = "lf-event-id"
	headerSubject = "lf-subject"
)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSenderConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// KafkaSender writes envelopes to one topic. The group id becomes the message
// key so that every message of a group lands on the same partition, and the
// dedup id travels in the event-id header.
type KafkaSender struct {
	writer KafkaWriter
	topic  string
}

func NewKafkaSender(cfg KafkaSenderConfig) *KafkaSender {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
		},
	}
	return &KafkaSender{writer: writer, topic: cfg.Topic}
}

func NewKafkaSenderWithWriter(writer KafkaWriter, topic string) *KafkaSender {
	return &KafkaSender{writer: writer, topic: topic}
}

func (s *KafkaSender) Send(ctx context.Context, env Envelope) error {
	if s.topic == "" {
		return errors.New("topic is not configured")
	}

	headers := make([]kafka.Header, 0, len(env.Attributes)+2)
	if env.DedupID != "" {
		headers = append(headers, kafka.Header{Key: HeaderEventID, Value: []byte(env.DedupID)})
	}
	if env.Subject != "" {
		headers = append(headers, kafka.Header{Key: headerSubject, Value: []byte(env.Subject)})
	}
	for key, value := range env.Attributes {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	message := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(env.GroupID),
		Value:   env.Body,
		Headers: headers,
		Time:    time.Now(),
	}
	return s.writer.WriteMessages(ctx, message)
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
