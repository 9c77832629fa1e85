// Package audit пишет журнал административных действий. Запись выполняется
// по принципу best-effort: ошибки логируются и никогда не возвращаются вызывающему.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/metrics"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

const writeTimeout = 3 * time.Second

// Store сохраняет запись журнала.
type Store interface {
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
}

// Publisher дублирует записи во внешнюю шину. Необязателен.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// Event описывает одно действие. Before и After сериализуются в JSON.
type Event struct {
	Actor       *models.Actor
	Action      string
	Target      *models.Target
	Description string
	Before      any
	After       any
	Client      *models.ClientMeta
}

// Recorder пишет события в хранилище и, если задан, в Publisher.
type Recorder struct {
	store     Store
	publisher Publisher
	log       *slog.Logger
}

// Option настраивает Recorder.
type Option func(*Recorder)

// WithPublisher включает рассылку записей во внешнюю шину.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

// NewRecorder создаёт Recorder.
func NewRecorder(store Store, log *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record сохраняет событие. Отмена ctx запроса не прерывает запись.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	const op = "audit.Record"
	log := r.log.With(sl.Op(op), slog.String("action", ev.Action))

	entry := &models.AuditEntry{
		Actor:       ev.Actor,
		Action:      ev.Action,
		Target:      ev.Target,
		Description: ev.Description,
		Before:      snapshot(log, ev.Before),
		After:       snapshot(log, ev.After),
		Client:      ev.Client,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.store.InsertAuditEntry(ctx, entry); err != nil {
		metrics.ObserveAuditWriteFailure()
		log.Error("failed to write audit entry", sl.Err(err))
		return
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, entry); err != nil {
			log.Warn("failed to publish audit entry", sl.Err(err))
		}
	}
}

func snapshot(log *slog.Logger, v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn("failed to marshal audit snapshot", sl.Err(err))
		return nil
	}
	return b
}
