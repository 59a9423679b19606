package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tg-sighting-bot/internal/domain"
	"tg-sighting-bot/internal/infra/metrics"
)

// execer: часть pgxpool.Pool, нужная журналу событий.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres сохраняет бизнесовые события в таблицу business_metrics.
type Postgres struct {
	pool execer
}

var _ domain.BusinessMetricRepo = (*Postgres)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS business_metrics (
    id          BIGSERIAL PRIMARY KEY,
    event_id    UUID        NOT NULL UNIQUE,
    event       TEXT        NOT NULL,
    chat_id     BIGINT,
    metadata    JSONB,
    occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS business_metrics_event_idx ON business_metrics (event, occurred_at);
`

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool execer) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema создаёт таблицу событий, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", start, err)
	return err
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД. Повтор события с тем же ID игнорируется.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}
	eventID, err := uuid.Parse(metric.ID)
	if err != nil {
		eventID = uuid.New()
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var chatID sql.NullInt64
	if metric.ChatID != nil {
		chatID = sql.NullInt64{Int64: *metric.ChatID, Valid: true}
	}

	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO business_metrics (event_id, event, chat_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (event_id) DO NOTHING
`, eventID, metric.Event, chatID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", start, err)
	return err
}
