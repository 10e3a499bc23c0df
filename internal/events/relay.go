package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/metrics"
	"github.com/linemk/outlet-shop/internal/storage"
	"github.com/segmentio/kafka-go"
)

// MessageWriter – часть *kafka.Writer, которая нужна relay.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter создаёт writer для топика событий заказов.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// Relay переносит события из outbox_events в брокер.
type Relay struct {
	log       *slog.Logger
	repo      storage.OutboxStorage
	writer    MessageWriter
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

func NewRelay(log *slog.Logger, repo storage.OutboxStorage, writer MessageWriter, m *metrics.Metrics, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		log:       log.With(slog.String("component", "outbox-relay")),
		repo:      repo,
		writer:    writer,
		metrics:   m,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run блокируется до отмены ctx.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("outbox relay started", slog.Duration("interval", r.interval))
	for {
		select {
		case <-ticker.C:
			r.ProcessBatch(ctx)
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		}
	}
}

// ProcessBatch публикует одну пачку и возвращает число отправленных событий.
// На первой ошибке публикации пачка прерывается, чтобы не нарушить порядок событий.
func (r *Relay) ProcessBatch(ctx context.Context) int {
	evs, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		r.log.Error("failed to fetch outbox events", slog.Any("error", err))
		return 0
	}

	sent := 0
	for _, ev := range evs {
		if err := r.writer.WriteMessages(ctx, toMessage(ev)); err != nil {
			r.log.Error("failed to publish outbox event",
				slog.Int64("event_id", ev.ID),
				slog.String("event_type", ev.EventType),
				slog.Any("error", err),
			)
			return sent
		}
		// событие уже в брокере, при ошибке отметки уйдёт повторно (at-least-once)
		if err := r.repo.MarkSent(ctx, ev.ID); err != nil {
			r.log.Error("failed to mark outbox event sent", slog.Int64("event_id", ev.ID), slog.Any("error", err))
			return sent
		}
		r.metrics.ObserveOutboxSent()
		sent++
	}
	if sent > 0 {
		r.log.Debug("outbox events published", slog.Int("count", sent))
	}
	return sent
}

func toMessage(ev *models.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID.String()),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}
}
