package forecast

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

// FactorSource exposes the current forecast correction. The engine only
// reads it; the evaluator owns the value.
type FactorSource interface {
	CorrectionFactor() (models.CorrectionFactor, error)
}

// Engine assembles the rideable-hours forecast: Open-Meteo wind, optionally
// enriched with sea state, adjusted by the learned correction factor.
type Engine struct {
	wind      WindFetcher
	marine    MarineFetcher
	factors   FactorSource
	loc       *time.Location
	startHour int
	endHour   int
}

func NewEngine(wind WindFetcher, marine MarineFetcher, factors FactorSource, loc *time.Location, startHour, endHour int) *Engine {
	return &Engine{
		wind:      wind,
		marine:    marine,
		factors:   factors,
		loc:       loc,
		startHour: startHour,
		endHour:   endHour,
	}
}

// Forecast returns corrected predictions for operating hours. Wind failure
// is fatal; marine failure only drops the wave fields.
func (e *Engine) Forecast(ctx context.Context) ([]models.ForecastEntry, error) {
	entries, err := e.assemble(ctx)
	if err != nil {
		return nil, err
	}

	factor := 1.0
	cf, err := e.factors.CorrectionFactor()
	if err != nil {
		log.Printf("forecast: correction factor unavailable, using neutral: %v", err)
	} else {
		factor = cf.Value
	}

	for i := range entries {
		entries[i].CorrectionFactor = factor
		if factor != 1.0 {
			entries[i].Speed *= factor
			entries[i].Gust *= factor
			entries[i].Corrected = true
		}
	}
	return entries, nil
}

// RawForecast returns uncorrected predictions, as fed to the accuracy
// snapshot table.
func (e *Engine) RawForecast(ctx context.Context) ([]models.ForecastEntry, error) {
	entries, err := e.assemble(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].CorrectionFactor = 1.0
	}
	return entries, nil
}

func (e *Engine) assemble(ctx context.Context) ([]models.ForecastEntry, error) {
	windPoints, err := e.wind.FetchWind(ctx)
	if err != nil {
		return nil, err
	}

	var waves map[time.Time]MarinePoint
	if e.marine != nil {
		marinePoints, err := e.marine.FetchMarine(ctx)
		if err != nil {
			log.Printf("forecast: marine fetch failed, wind-only output: %v", err)
		} else {
			waves = make(map[time.Time]MarinePoint, len(marinePoints))
			for _, p := range marinePoints {
				waves[p.TargetTime] = p
			}
		}
	}

	var entries []models.ForecastEntry
	for _, p := range windPoints {
		local := p.TargetTime.In(e.loc)
		if local.Hour() < e.startHour || local.Hour() >= e.endHour {
			continue
		}

		entry := models.ForecastEntry{
			TargetTime: p.TargetTime,
			Speed:      p.Speed,
			Gust:       p.Gust,
			Direction:  p.Direction,
		}
		if p.PrecipProb != nil {
			entry.PrecipProb = sql.NullInt64{Int64: int64(*p.PrecipProb), Valid: true}
		}
		if wave, ok := waves[p.TargetTime]; ok {
			entry.WaveHeight = sql.NullFloat64{Float64: wave.WaveHeight, Valid: true}
			entry.WaveDirection = sql.NullFloat64{Float64: wave.WaveDirection, Valid: true}
			entry.WavePeriod = sql.NullFloat64{Float64: wave.WavePeriod, Valid: true}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
