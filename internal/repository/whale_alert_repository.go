package repository

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

type WhaleAlertRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewWhaleAlertRepository(pool PgxPool, tracer trace.Tracer) *WhaleAlertRepository {
	return &WhaleAlertRepository{pool: pool, tracer: tracer}
}

// Insert records an alert unless the same coin already raised the same signal
// type within the alert's hour. It reports whether a row was written.
func (r *WhaleAlertRepository) Insert(ctx context.Context, a domain.WhaleAlert) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "whale-alert-repo.insert")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", a.CoinID), attribute.String("type", string(a.Type)))

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO whale_alerts (coin_id, symbol, type, severity, message, indicator, confidence, detected_at, hour_bucket)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (coin_id, type, hour_bucket) DO NOTHING`,
		a.CoinID, a.Symbol, string(a.Type), string(a.Severity), a.Message, a.Indicator, a.Confidence,
		a.DetectedAt.UTC(), a.DetectedAt.UTC().Truncate(time.Hour),
	)
	if err != nil {
		return false, fmt.Errorf("insert whale alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns alerts newest first, optionally for one coin.
func (r *WhaleAlertRepository) List(ctx context.Context, filter domain.WhaleAlertFilter) ([]domain.WhaleAlert, error) {
	ctx, span := r.tracer.Start(ctx, "whale-alert-repo.list")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, coin_id, symbol, type, severity, message, indicator, confidence, detected_at
		 FROM whale_alerts
		 WHERE ($1 = '' OR coin_id = $1)
		 ORDER BY detected_at DESC, id DESC
		 LIMIT $2`,
		filter.CoinID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query whale alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.WhaleAlert, 0)
	for rows.Next() {
		var a domain.WhaleAlert
		var typ, sev string
		if err := rows.Scan(&a.ID, &a.CoinID, &a.Symbol, &typ, &sev, &a.Message, &a.Indicator, &a.Confidence, &a.DetectedAt); err != nil {
			return nil, err
		}
		a.Type = domain.SignalType(typ)
		a.Severity = domain.Severity(sev)
		a.DetectedAt = a.DetectedAt.UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
