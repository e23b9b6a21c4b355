package station

import (
	"context"
	"database/sql"
	"log"
	"math"
	"sort"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/metrics"
	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

// Calibration supplies the persisted direction offset applied to every
// accepted reading.
type Calibration interface {
	CalibrationOffset() (float64, error)
}

// Aggregator tries providers in priority order and returns the first usable
// reading as a normalized measurement. It never retries a provider within a
// cycle; a bad cycle just waits for the next tick.
type Aggregator struct {
	providers []Provider
	cal       Calibration
}

func NewAggregator(cal Calibration, providers ...Provider) *Aggregator {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Aggregator{providers: sorted, cal: cal}
}

// Collect returns the measurement from the highest-priority healthy station.
// All providers failing yields ErrAllStationsFailed.
func (a *Aggregator) Collect(ctx context.Context) (*models.Measurement, error) {
	offset, err := a.cal.CalibrationOffset()
	if err != nil {
		log.Printf("station: calibration read failed, using 0: %v", err)
		offset = 0
	}

	now := time.Now().UTC()
	for i, p := range a.providers {
		reading, err := p.Fetch(ctx)
		if err != nil {
			log.Printf("station: %s fetch failed: %v", p.Name(), err)
			metrics.CollectionsTotal.WithLabelValues(p.Name(), "error").Inc()
			if i < len(a.providers)-1 {
				metrics.StationFailoversTotal.WithLabelValues(p.Name()).Inc()
			}
			continue
		}
		if flags := Validate(reading, now); len(flags) > 0 {
			log.Printf("station: %s rejected: %v", p.Name(), flags)
			metrics.CollectionsTotal.WithLabelValues(p.Name(), "invalid").Inc()
			if i < len(a.providers)-1 {
				metrics.StationFailoversTotal.WithLabelValues(p.Name()).Inc()
			}
			continue
		}

		metrics.CollectionsTotal.WithLabelValues(p.Name(), "ok").Inc()
		return toMeasurement(reading, offset), nil
	}

	return nil, ErrAllStationsFailed
}

func toMeasurement(r *Reading, offset float64) *models.Measurement {
	m := &models.Measurement{
		StationID:  r.StationID,
		MeasuredAt: r.MeasuredAt.UTC().Truncate(time.Second),
		WindSpeed:  r.WindSpeed,
		WindGust:   r.WindGust,
		WindDir:    calibrateDir(r.WindDir, offset),
	}
	if r.MaxDailyGust != nil {
		m.MaxDailyGust = sql.NullFloat64{Float64: *r.MaxDailyGust, Valid: true}
	}
	if r.WindDirAvg != nil {
		m.WindDirAvg = sql.NullInt64{Int64: int64(calibrateDir(*r.WindDirAvg, offset)), Valid: true}
	}
	if r.Temp != nil {
		m.Temp = sql.NullFloat64{Float64: *r.Temp, Valid: true}
	}
	if r.Humidity != nil {
		m.Humidity = sql.NullInt64{Int64: int64(*r.Humidity), Valid: true}
	}
	if r.Pressure != nil {
		m.Pressure = sql.NullFloat64{Float64: *r.Pressure, Valid: true}
	}
	return m
}

// calibrateDir applies the offset and folds the result back into [0,360).
func calibrateDir(dir int, offset float64) int {
	d := math.Mod(float64(dir)+offset, 360)
	if d < 0 {
		d += 360
	}
	return int(math.Round(d)) % 360
}
