package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/hub"
	"github.com/jorikfon/JollyKite-sub001/internal/models"
	"github.com/jorikfon/JollyKite-sub001/internal/station"
	"github.com/jorikfon/JollyKite-sub001/internal/trend"
)

// CollectOnce runs one full collection cycle: poll stations, persist, push
// the update to stream clients, then give the notification gate a chance.
func (s *Scheduler) CollectOnce(ctx context.Context) error {
	m, err := s.aggregator.Collect(ctx)
	if err != nil {
		if errors.Is(err, station.ErrAllStationsFailed) {
			log.Printf("collect: no station produced a usable reading")
			return nil
		}
		return err
	}

	if err := s.store.InsertMeasurement(*m); err != nil {
		return fmt.Errorf("persist measurement: %w", err)
	}

	tw := s.computeTrend(time.Now().UTC())
	s.hub.Broadcast(hub.Event{
		Type:      "wind_update",
		Data:      models.NewWindSample(*m),
		Trend:     tw,
		Timestamp: time.Now().UTC(),
	})

	if s.gate != nil {
		if err := s.gate.Evaluate(ctx, time.Now()); err != nil {
			log.Printf("collect: notification check failed: %v", err)
		}
	}
	return nil
}

// ArchiveHour recomputes and upserts the rollup for one hour bucket.
func (s *Scheduler) ArchiveHour(hour time.Time) error {
	agg, err := s.store.ComputeHourlyAggregate(hour)
	if err != nil {
		return err
	}
	if agg == nil {
		return nil
	}
	return s.store.UpsertHourlyAggregate(*agg)
}

func (s *Scheduler) computeTrend(now time.Time) *models.TrendWindow {
	recent, err := s.store.MeasurementsSince(now.Add(-65 * time.Minute))
	if err != nil {
		log.Printf("collect: trend query failed: %v", err)
		return nil
	}
	tw := trend.Compute(recent, now, trend.Thresholds{
		StablePct: s.cfg.TrendStablePct,
		StrongPct: s.cfg.TrendStrongPct,
	})
	return &tw
}
