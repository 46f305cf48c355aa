package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/config"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes delay records to a Kafka topic.
// It implements pipeline.RecordSink.
type Writer struct {
	writer   messageWriter
	attempts int
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, cfg.KafkaWriteAttempts, clock, logger)
}

func newWriter(w messageWriter, attempts int, clock clockwork.Clock, logger *slog.Logger) *Writer {
	if attempts < 1 {
		attempts = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Writer{writer: w, attempts: attempts, clock: clock, logger: logger}
}

// Name identifies the sink in metrics and logs.
func (w *Writer) Name() string { return "kafka" }

// WriteRecords serializes every record and publishes them in one
// WriteMessages call, retrying the whole batch with exponential backoff.
// Records are keyed by "<index>-<event type>" so a republished record
// replaces the earlier one in a compacted topic.
func (w *Writer) WriteRecords(ctx context.Context, records []domain.DelayRecord) error {
	if len(records) == 0 {
		return nil
	}
	exportedAt := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], exportedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := initialBackoff
	var err error
	for attempt := 1; ; attempt++ {
		err = w.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			w.logger.Info("delay records exported", "sink", w.Name(), "records", len(msgs), "attempts", attempt)
			return nil
		}
		if attempt >= w.attempts || ctx.Err() != nil {
			break
		}
		w.logger.Warn("kafka write failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish %d delay records: %w", len(msgs), err)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DelayRecord into a Kafka message.
func serializeToMessage(record domain.DelayRecord, exportedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize delay record %s: %w", record.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(record.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(record.EventType)},
			{Key: "exported_at", Value: []byte(exportedAt.Format(time.RFC3339))},
		},
	}, nil
}
