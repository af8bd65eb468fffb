package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pevans/newsharvest"
)

// Kafka publishes one message per record, keyed by site so records of
// a publisher land in one partition.
type Kafka struct {
	writer *kafka.Writer
	// Timeout bounds the whole batch write.
	Timeout time.Duration
}

// NewKafka builds a Kafka sink for the given brokers and topic.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireOne,
		},
		Timeout: 30 * time.Second,
	}
}

// Write publishes the records. Empty buffers are a no-op.
func (k *Kafka) Write(site string, mode newsharvest.Mode, records []any) error {
	if len(records) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(records))
	for _, record := range records {
		value, err := json.Marshal(record)
		if err != nil {
			return newsharvest.WrapError(newsharvest.KindExportOutputFile,
				"failed to encode record for kafka", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(site),
			Value: value,
			Headers: []kafka.Header{
				{Key: "site", Value: []byte(site)},
				{Key: "mode", Value: []byte(mode)},
			},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.Timeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, messages...); err != nil {
		return newsharvest.WrapError(newsharvest.KindExportOutputFile,
			fmt.Sprintf("failed to publish %d records", len(messages)), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
