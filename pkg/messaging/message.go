package messaging

import (
	"context"
	"errors"
	"time"
)

// ErrPoisonMessage marks a message that can never be processed. The poller
// acknowledges it instead of leaving it for redelivery.
var ErrPoisonMessage = errors.New("poison message")

// Envelope is an outbound message. GroupID and DedupID are honoured only by
// channels that support ordering and deduplication.
type Envelope struct {
	Body       []byte
	Subject    string
	GroupID    string
	DedupID    string
	Attributes map[string]string
}

// Message is an inbound message received from a queue.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          []byte
	GroupID       string
	ReceiveCount  int
	Attributes    map[string]string
}

type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

type Receiver interface {
	Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error)
	Delete(ctx context.Context, msg Message) error
}

// Handler processes one message. A nil return acknowledges it.
type Handler func(ctx context.Context, msg Message) error

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, env Envelope) error

func (f SenderFunc) Send(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}
