package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-forecast-etl/internal/config"
	"github.com/couchcryptid/rainfall-forecast-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer announces published forecast batches and uploaded archives on a
// Kafka topic. It implements pipeline.BatchNotifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// NotifyBatch writes one message for event, keyed by model so that a model's
// notifications stay ordered within a partition.
func (w *Writer) NotifyBatch(ctx context.Context, event domain.BatchEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s notification for %s: %w", event.Kind, event.ModelName, err)
	}
	w.logger.Debug("batch notification sent", "model", event.ModelName, "kind", event.Kind, "id", event.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a BatchEvent into a Kafka message.
func serializeToMessage(event domain.BatchEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize batch event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ModelName),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "published_at", Value: []byte(event.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
