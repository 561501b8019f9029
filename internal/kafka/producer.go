// Package kafka publishes completed retention decisions to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/lazypower/retention/internal/results"
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer sends decision records to Kafka. It implements results.Sink.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

// Save publishes r keyed by its session, so one session's decisions land on
// the same partition in order.
func (p *Producer) Save(ctx context.Context, r results.Record) error {
	msg, err := buildMessage(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish decision to %s: %w", p.topic, err)
	}
	log.Printf("kafka: sent decision %s for session %q", r.Recommendation.Code, r.SessionID)
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(r results.Record) (kafka.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal decision: %w", err)
	}
	msg := kafka.Message{Value: data}
	if r.SessionID != "" {
		msg.Key = []byte(r.SessionID)
	}
	return msg, nil
}
