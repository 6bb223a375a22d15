package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-clock-service/internal/config"
	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/couchcryptid/weather-clock-service/internal/observability"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces hourly weather records to a Kafka topic.
// It implements pipeline.RecordPublisher.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// Publish writes records from one ingestion in a single WriteMessages call.
// Every message carries the same ingestion_id header.
func (w *Writer) Publish(ctx context.Context, records []domain.WeatherRecord, ingestedAt time.Time) error {
	if len(records) == 0 {
		return nil
	}
	ingestionID := uuid.NewString()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], ingestionID, ingestedAt)
		if err != nil {
			w.metrics.PublishErrors.Inc()
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("write %d weather records: %w", len(msgs), err)
	}
	w.metrics.RecordsPublished.Add(float64(len(msgs)))
	w.logger.Debug("weather records published", "count", len(msgs), "ingestion_id", ingestionID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WeatherRecord into a Kafka message keyed by
// its hour so all versions of an hour land on the same partition.
func serializeToMessage(rec domain.WeatherRecord, ingestionID string, ingestedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(int64(domain.HourKeyOf(rec.Time)), 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(rec.Category)},
			{Key: "ingestion_id", Value: []byte(ingestionID)},
			{Key: "ingested_at", Value: []byte(ingestedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
