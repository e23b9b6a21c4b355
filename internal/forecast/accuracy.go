package forecast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

const (
	matchTolerance = 45 * time.Minute
	minFactor      = 0.5
	maxFactor      = 2.0
	maxSampleCount = 200
)

// EvaluatorStore is the persistence the accuracy loop needs.
type EvaluatorStore interface {
	InsertSnapshot(snap models.ForecastSnapshot) error
	MaturedSnapshots(before time.Time) ([]models.ForecastSnapshot, error)
	DeleteSnapshotsBefore(cutoff time.Time) (int64, error)
	NearestMeasurement(target time.Time, tolerance time.Duration) (*models.Measurement, error)
	CorrectionFactor() (models.CorrectionFactor, error)
	SetCorrectionFactor(cf models.CorrectionFactor) error
}

// Evaluator closes the forecast feedback loop: it freezes raw predictions,
// compares matured ones against measurements, and folds the outcome into the
// correction factor the engine applies.
type Evaluator struct {
	store  EvaluatorStore
	engine *Engine
}

func NewEvaluator(s EvaluatorStore, engine *Engine) *Evaluator {
	return &Evaluator{store: s, engine: engine}
}

// Snapshot persists the current raw forecast so it can be verified once its
// target hours have passed. Snapshotting the same capture twice is a no-op.
func (e *Evaluator) Snapshot(ctx context.Context) error {
	entries, err := e.engine.RawForecast(ctx)
	if err != nil {
		return fmt.Errorf("snapshot forecast: %w", err)
	}

	capturedAt := time.Now().UTC().Truncate(time.Hour)
	for _, entry := range entries {
		snap := models.ForecastSnapshot{
			CapturedAt:     capturedAt,
			TargetTime:     entry.TargetTime,
			PredictedSpeed: entry.Speed,
			PredictedGust:  entry.Gust,
		}
		if err := e.store.InsertSnapshot(snap); err != nil {
			return fmt.Errorf("persist snapshot for %s: %w", entry.TargetTime.Format(time.RFC3339), err)
		}
	}
	log.Printf("accuracy: captured %d forecast snapshots", len(entries))
	return nil
}

// Evaluate compares matured snapshots with what the stations measured and
// updates the correction factor. A run with no usable matches leaves the
// factor exactly as it was.
func (e *Evaluator) Evaluate(now time.Time) error {
	snapshots, err := e.store.MaturedSnapshots(now.UTC())
	if err != nil {
		return fmt.Errorf("load matured snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return nil
	}

	var ratioSum float64
	var matches int
	for _, snap := range snapshots {
		if snap.PredictedSpeed <= 0 {
			continue
		}
		m, err := e.store.NearestMeasurement(snap.TargetTime, matchTolerance)
		if err != nil {
			return fmt.Errorf("match snapshot %d: %w", snap.ID, err)
		}
		if m == nil {
			continue
		}
		ratio := m.WindSpeed / snap.PredictedSpeed
		if ratio < minFactor || ratio > maxFactor {
			continue
		}
		ratioSum += ratio
		matches++
	}

	deleted, err := e.store.DeleteSnapshotsBefore(now.UTC())
	if err != nil {
		return fmt.Errorf("clear evaluated snapshots: %w", err)
	}

	if matches == 0 {
		log.Printf("accuracy: %d snapshots matured, none matched a measurement", deleted)
		return nil
	}

	prev, err := e.store.CorrectionFactor()
	if err != nil {
		return fmt.Errorf("load correction factor: %w", err)
	}

	blended := (prev.Value*float64(prev.SampleCount) + ratioSum) / float64(prev.SampleCount+matches)
	blended = clamp(blended, minFactor, maxFactor)

	samples := prev.SampleCount + matches
	if samples > maxSampleCount {
		samples = maxSampleCount
	}

	cf := models.CorrectionFactor{
		Value:       blended,
		SampleCount: samples,
		ComputedAt:  now.UTC(),
	}
	if err := e.store.SetCorrectionFactor(cf); err != nil {
		return fmt.Errorf("store correction factor: %w", err)
	}

	log.Printf("accuracy: factor %.3f -> %.3f from %d matches", prev.Value, blended, matches)
	return nil
}

// Prune drops snapshots that were never evaluated, past the retention window.
func (e *Evaluator) Prune(retention time.Duration) error {
	deleted, err := e.store.DeleteSnapshotsBefore(time.Now().UTC().Add(-retention))
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("accuracy: pruned %d stale snapshots", deleted)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
