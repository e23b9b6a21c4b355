package ingest

import (
	"context"
	"log"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/config"
	"github.com/jorikfon/JollyKite-sub001/internal/forecast"
	"github.com/jorikfon/JollyKite-sub001/internal/hub"
	"github.com/jorikfon/JollyKite-sub001/internal/notify"
	"github.com/jorikfon/JollyKite-sub001/internal/station"
	"github.com/jorikfon/JollyKite-sub001/internal/store"
)

// Scheduler drives all recurring jobs: telemetry collection during the
// operating window, hourly archival, retention cleanup, forecast snapshots
// and the end-of-day accuracy evaluation.
type Scheduler struct {
	cfg        *config.Config
	store      *store.Store
	aggregator *station.Aggregator
	evaluator  *forecast.Evaluator
	hub        *hub.Hub
	gate       *notify.Gate
	loc        *time.Location

	lastEvalDate string
}

func NewScheduler(cfg *config.Config, s *store.Store, agg *station.Aggregator, eval *forecast.Evaluator, h *hub.Hub, gate *notify.Gate, loc *time.Location) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      s,
		aggregator: agg,
		evaluator:  eval,
		hub:        h,
		gate:       gate,
		loc:        loc,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.collect(ctx)
	s.snapshot(ctx)

	collectTicker := time.NewTicker(s.cfg.CollectInterval)
	archiveTicker := time.NewTicker(s.cfg.ArchiveInterval)
	snapshotTicker := time.NewTicker(s.cfg.SnapshotInterval)
	evalTicker := time.NewTicker(1 * time.Hour)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer collectTicker.Stop()
	defer archiveTicker.Stop()
	defer snapshotTicker.Stop()
	defer evalTicker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-collectTicker.C:
			s.collect(ctx)
		case <-archiveTicker.C:
			s.archive()
		case <-snapshotTicker.C:
			s.snapshot(ctx)
		case <-evalTicker.C:
			s.evaluateIfNeeded()
		case <-retentionTicker.C:
			s.retention()
		}
	}
}

// inWindow reports whether the local clock is inside the operating window.
// Jobs outside it skip silently; the wind at 3am helps nobody.
func (s *Scheduler) inWindow(t time.Time) bool {
	h := t.In(s.loc).Hour()
	return h >= s.cfg.WindowStartHour && h < s.cfg.WindowEndHour
}

func (s *Scheduler) collect(ctx context.Context) {
	if !s.inWindow(time.Now()) {
		return
	}
	if err := s.CollectOnce(ctx); err != nil {
		log.Printf("scheduler: collection cycle failed: %v", err)
	}
}

func (s *Scheduler) archive() {
	// Roll up the last fully closed hour. Recomputing is idempotent, so a
	// restarted process repeating an hour is harmless.
	closed := time.Now().UTC().Truncate(time.Hour).Add(-time.Hour)
	if err := s.ArchiveHour(closed); err != nil {
		log.Printf("scheduler: archive for %s failed: %v", closed.Format("2006-01-02T15"), err)
	}
}

func (s *Scheduler) snapshot(ctx context.Context) {
	if !s.inWindow(time.Now()) {
		return
	}
	if err := s.evaluator.Snapshot(ctx); err != nil {
		log.Printf("scheduler: forecast snapshot failed: %v", err)
	}
}

// evaluateIfNeeded runs the accuracy evaluation once per local day, in the
// last operating hour, when a full day of measurements exists to compare
// against.
func (s *Scheduler) evaluateIfNeeded() {
	now := time.Now()
	local := now.In(s.loc)
	if local.Hour() != s.cfg.WindowEndHour-1 {
		return
	}
	date := local.Format("2006-01-02")
	if date == s.lastEvalDate {
		return
	}

	if err := s.evaluator.Evaluate(now); err != nil {
		log.Printf("scheduler: accuracy evaluation failed: %v", err)
		return
	}
	s.lastEvalDate = date
}

func (s *Scheduler) retention() {
	cutoff := time.Now().UTC().Add(-s.cfg.RawRetention)
	deleted, err := s.store.DeleteMeasurementsBefore(cutoff)
	if err != nil {
		log.Printf("scheduler: retention cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("scheduler: pruned %d raw measurements older than %s", deleted, cutoff.Format("2006-01-02"))
	}

	if err := s.evaluator.Prune(s.cfg.SnapshotRetention); err != nil {
		log.Printf("scheduler: snapshot cleanup failed: %v", err)
	}
}
