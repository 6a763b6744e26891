package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the publisher depends on
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	prefix string
}

// NewKafkaPublisher creates a Publisher backed by a single kafka-go writer.
// The topic is set per message so one writer serves every topic.
func NewKafkaPublisher(brokers []string, topicPrefix string) Publisher {
	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Balancer:               &kafkaGo.Hash{},
		RequiredAcks:           kafkaGo.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return newKafkaPublisher(w, topicPrefix)
}

func newKafkaPublisher(w messageWriter, topicPrefix string) *kafkaPublisher {
	return &kafkaPublisher{writer: w, prefix: topicPrefix}
}

func (k *kafkaPublisher) topic(name string) string {
	if k.prefix == "" {
		return name
	}
	return k.prefix + "." + name
}

func (k *kafkaPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: k.topic(topic),
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", k.topic(topic), err)
	}
	return nil
}

func (k *kafkaPublisher) Close() error {
	return k.writer.Close()
}
