// Package broker publishes azdo events to a message broker.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
)

// Broker abstracts message publishing and consumption.
// The in-memory implementation serves a single process; Redpanda shares events
// with other consumers.
type Broker interface {
	// Publish sends a message to a topic. The key selects the partition on
	// Redpanda and is carried through unchanged in memory.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel of messages published to topic.
	// groupID names the consumer group on Redpanda.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	// Unix milliseconds.
	Timestamp int64
}

// PublishJSON encodes v and publishes it.
func PublishJSON(ctx context.Context, b Broker, topic, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}
	return b.Publish(ctx, topic, key, data)
}

// Decode unmarshals the value of a message into v.
func (m Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Value, v); err != nil {
		return fmt.Errorf("failed to decode %s message: %w", m.Topic, err)
	}
	return nil
}
