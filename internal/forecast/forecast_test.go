package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

type fakeWind struct {
	points []WindPoint
	err    error
}

func (f *fakeWind) FetchWind(ctx context.Context) ([]WindPoint, error) {
	return f.points, f.err
}

type fakeMarine struct {
	points []MarinePoint
	err    error
}

func (f *fakeMarine) FetchMarine(ctx context.Context) ([]MarinePoint, error) {
	return f.points, f.err
}

type fakeFactors struct {
	cf  models.CorrectionFactor
	err error
}

func (f *fakeFactors) CorrectionFactor() (models.CorrectionFactor, error) {
	return f.cf, f.err
}

// noonUTC falls inside the 6-19 Moscow operating window year round.
func noonUTC(day int) time.Time {
	return time.Date(2026, 8, day, 12, 0, 0, 0, time.UTC)
}

func testEngine(wind WindFetcher, marine MarineFetcher, factors FactorSource) *Engine {
	loc, _ := time.LoadLocation("Europe/Moscow")
	return NewEngine(wind, marine, factors, loc, 6, 19)
}

func TestForecast_AppliesCorrection(t *testing.T) {
	wind := &fakeWind{points: []WindPoint{
		{TargetTime: noonUTC(31), Speed: 10, Gust: 14, Direction: 90},
	}}
	factors := &fakeFactors{cf: models.CorrectionFactor{Value: 1.25, SampleCount: 30}}

	engine := testEngine(wind, nil, factors)
	entries, err := engine.Forecast(context.Background())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Speed != 12.5 {
		t.Errorf("Speed = %v, want 12.5 (10 * 1.25)", e.Speed)
	}
	if e.Gust != 17.5 {
		t.Errorf("Gust = %v, want 17.5", e.Gust)
	}
	if !e.Corrected {
		t.Error("Corrected = false, want true")
	}
	if e.CorrectionFactor != 1.25 {
		t.Errorf("CorrectionFactor = %v, want 1.25", e.CorrectionFactor)
	}
}

func TestForecast_NeutralFactorLeavesValues(t *testing.T) {
	wind := &fakeWind{points: []WindPoint{
		{TargetTime: noonUTC(31), Speed: 10, Gust: 14, Direction: 90},
	}}
	factors := &fakeFactors{cf: models.CorrectionFactor{Value: 1.0}}

	engine := testEngine(wind, nil, factors)
	entries, err := engine.Forecast(context.Background())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if entries[0].Speed != 10 || entries[0].Corrected {
		t.Errorf("entry = %v corrected=%v, want untouched values with neutral factor", entries[0].Speed, entries[0].Corrected)
	}
}

func TestForecast_MarineFailureDegrades(t *testing.T) {
	at := noonUTC(31)
	wind := &fakeWind{points: []WindPoint{{TargetTime: at, Speed: 8, Gust: 11, Direction: 100}}}
	marine := &fakeMarine{err: errors.New("marine api down")}
	factors := &fakeFactors{cf: models.CorrectionFactor{Value: 1.0}}

	engine := testEngine(wind, marine, factors)
	entries, err := engine.Forecast(context.Background())
	if err != nil {
		t.Fatalf("Forecast: %v, want wind-only success", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].WaveHeight.Valid {
		t.Error("WaveHeight set despite marine failure")
	}
}

func TestForecast_WindFailureIsFatal(t *testing.T) {
	wind := &fakeWind{err: errors.New("api down")}
	engine := testEngine(wind, nil, &fakeFactors{cf: models.CorrectionFactor{Value: 1.0}})

	if _, err := engine.Forecast(context.Background()); err == nil {
		t.Fatal("Forecast returned nil error with wind source down")
	}
}

func TestForecast_MergesMarineByHour(t *testing.T) {
	at := noonUTC(31)
	wind := &fakeWind{points: []WindPoint{{TargetTime: at, Speed: 8, Gust: 11, Direction: 100}}}
	marine := &fakeMarine{points: []MarinePoint{{TargetTime: at, WaveHeight: 0.7, WaveDirection: 200, WavePeriod: 4.5}}}

	engine := testEngine(wind, marine, &fakeFactors{cf: models.CorrectionFactor{Value: 1.0}})
	entries, err := engine.Forecast(context.Background())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	e := entries[0]
	if !e.WaveHeight.Valid || e.WaveHeight.Float64 != 0.7 {
		t.Errorf("WaveHeight = %+v, want 0.7", e.WaveHeight)
	}
	if e.WavePeriod.Float64 != 4.5 {
		t.Errorf("WavePeriod = %v, want 4.5", e.WavePeriod.Float64)
	}
}

func TestForecast_FiltersToOperatingHours(t *testing.T) {
	// 01:00 UTC is 04:00 in Moscow, outside the window.
	night := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)
	wind := &fakeWind{points: []WindPoint{
		{TargetTime: night, Speed: 8, Gust: 11, Direction: 100},
		{TargetTime: noonUTC(31), Speed: 9, Gust: 12, Direction: 110},
	}}

	engine := testEngine(wind, nil, &fakeFactors{cf: models.CorrectionFactor{Value: 1.0}})
	entries, err := engine.Forecast(context.Background())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 after night hours dropped", len(entries))
	}
	if entries[0].Speed != 9 {
		t.Errorf("Speed = %v, want the daytime entry", entries[0].Speed)
	}
}

func TestRawForecast_NeverCorrected(t *testing.T) {
	wind := &fakeWind{points: []WindPoint{
		{TargetTime: noonUTC(31), Speed: 10, Gust: 14, Direction: 90},
	}}
	factors := &fakeFactors{cf: models.CorrectionFactor{Value: 1.5, SampleCount: 50}}

	engine := testEngine(wind, nil, factors)
	entries, err := engine.RawForecast(context.Background())
	if err != nil {
		t.Fatalf("RawForecast: %v", err)
	}
	if entries[0].Speed != 10 || entries[0].Corrected {
		t.Errorf("raw entry speed=%v corrected=%v, want uncorrected values", entries[0].Speed, entries[0].Corrected)
	}
}
