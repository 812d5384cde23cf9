package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Enqueuer submits work for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// Config contains the configuration for the queue.
type Config struct {
	Workers     int           // number of workers
	RetryLimit  int           // attempts after the first before the DLQ
	RetryDelay  time.Duration // delay before a failed message is retried
	PollTimeout time.Duration // BRPOP block time; bounds shutdown latency
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
}

// Message is the stored envelope.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ErrUnknownType means no job is registered for a message type.
var ErrUnknownType = errors.New("no job registered for type")

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
