package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
	"velaris/internal/whale"
	"velaris/pkg/metrics"
)

type SnapshotSource interface {
	Snapshots(ctx context.Context, limit int) ([]domain.MarketSnapshot, error)
}

type AlertStore interface {
	Insert(ctx context.Context, a domain.WhaleAlert) (bool, error)
}

type AlertBroadcaster interface {
	BroadcastWhaleAlert(a domain.WhaleAlert)
}

type AlertNotifier interface {
	NotifyWhaleAlert(ctx context.Context, a domain.WhaleAlert) error
}

// WhaleScanJob runs the whale heuristics over the top coins and records
// new alerts. The store decides what is new.
type WhaleScanJob struct {
	tracer   trace.Tracer
	source   SnapshotSource
	store    AlertStore
	hub      AlertBroadcaster
	notifier AlertNotifier
	rules    whale.Rules
	interval time.Duration
	limit    int
	now      func() time.Time
}

func NewWhaleScanJob(
	tracer trace.Tracer,
	source SnapshotSource,
	store AlertStore,
	hub AlertBroadcaster,
	notifier AlertNotifier,
	rules whale.Rules,
	intervalSecs int,
	limit int,
) *WhaleScanJob {
	if limit <= 0 {
		limit = 50
	}
	return &WhaleScanJob{
		tracer:   tracer,
		source:   source,
		store:    store,
		hub:      hub,
		notifier: notifier,
		rules:    rules,
		interval: time.Duration(intervalSecs) * time.Second,
		limit:    limit,
		now:      time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (j *WhaleScanJob) Start(ctx context.Context) {
	log.Info().Dur("interval", j.interval).Int("limit", j.limit).Msg("whale scan starting")
	pollLoop(ctx, "whale-scan", j.interval, func(ctx context.Context) error {
		_, err := j.Scan(ctx)
		return err
	})
	log.Info().Msg("whale scan stopped")
}

// Scan checks every snapshot once and returns the alerts that were new.
func (j *WhaleScanJob) Scan(ctx context.Context) ([]domain.WhaleAlert, error) {
	ctx, span := j.tracer.Start(ctx, "whale-scan.scan")
	defer span.End()

	snapshots, err := j.source.Snapshots(ctx, j.limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := j.now().UTC()
	var fresh []domain.WhaleAlert
	for _, s := range snapshots {
		for _, sig := range whale.DetectWithConfidence(s, j.rules, now) {
			alert := domain.WhaleAlert{
				CoinID:     s.CoinID,
				Symbol:     s.Symbol,
				Type:       sig.Type,
				Severity:   sig.Severity,
				Message:    sig.Message,
				Indicator:  sig.Indicator,
				Confidence: sig.Confidence,
				DetectedAt: now,
			}
			inserted, err := j.store.Insert(ctx, alert)
			if err != nil {
				log.Warn().Err(err).Str("coin_id", s.CoinID).Msg("failed to record whale alert")
				continue
			}
			if !inserted {
				continue
			}

			metrics.WhaleSignals.WithLabelValues(string(sig.Type), string(sig.Severity)).Inc()
			fresh = append(fresh, alert)
			if j.hub != nil {
				j.hub.BroadcastWhaleAlert(alert)
			}
			if j.notifier != nil {
				if err := j.notifier.NotifyWhaleAlert(ctx, alert); err != nil {
					log.Warn().Err(err).Str("coin_id", s.CoinID).Msg("whale alert notification failed")
				}
			}
		}
	}

	span.SetAttributes(attribute.Int("snapshot_count", len(snapshots)), attribute.Int("new_alerts", len(fresh)))
	if len(fresh) > 0 {
		log.Info().Int("new_alerts", len(fresh)).Msg("whale scan recorded alerts")
	}
	return fresh, nil
}
