package models

import (
	"database/sql"
	"time"
)

// Station describes one telemetry source for the spot. Priority 1 is the
// preferred station; higher numbers are fallbacks tried in order.
type Station struct {
	StationID string
	Name      string
	Provider  string // "weatherlink", "holfuy", "metfeed"
	Priority  int
	Active    bool
}

// Measurement is one normalized wind reading. Speeds are m/s, directions are
// degrees in [0,360) after calibration. Immutable once written.
type Measurement struct {
	ID           int64
	StationID    string
	MeasuredAt   time.Time
	WindSpeed    float64
	WindGust     float64
	MaxDailyGust sql.NullFloat64
	WindDir      int
	WindDirAvg   sql.NullInt64
	Temp         sql.NullFloat64
	Humidity     sql.NullInt64
	Pressure     sql.NullFloat64
	CreatedAt    time.Time
}

// WindSample is the JSON shape of a measurement for API responses and
// stream events. Optional fields are omitted when the station did not
// report them.
type WindSample struct {
	StationID    string   `json:"stationId"`
	MeasuredAt   string   `json:"measuredAt"`
	Speed        float64  `json:"speed"`
	Gust         float64  `json:"gust"`
	MaxDailyGust *float64 `json:"maxDailyGust,omitempty"`
	Direction    int      `json:"direction"`
	DirectionAvg *int     `json:"directionAvg,omitempty"`
	Temp         *float64 `json:"temp,omitempty"`
	Humidity     *int     `json:"humidity,omitempty"`
	Pressure     *float64 `json:"pressure,omitempty"`
}

func NewWindSample(m Measurement) WindSample {
	s := WindSample{
		StationID:  m.StationID,
		MeasuredAt: m.MeasuredAt.UTC().Format(time.RFC3339),
		Speed:      m.WindSpeed,
		Gust:       m.WindGust,
		Direction:  m.WindDir,
	}
	if m.MaxDailyGust.Valid {
		v := m.MaxDailyGust.Float64
		s.MaxDailyGust = &v
	}
	if m.WindDirAvg.Valid {
		v := int(m.WindDirAvg.Int64)
		s.DirectionAvg = &v
	}
	if m.Temp.Valid {
		v := m.Temp.Float64
		s.Temp = &v
	}
	if m.Humidity.Valid {
		v := int(m.Humidity.Int64)
		s.Humidity = &v
	}
	if m.Pressure.Valid {
		v := m.Pressure.Float64
		s.Pressure = &v
	}
	return s
}

// HourlyAggregate is the archived rollup of one closed hour of raw
// measurements. Recomputing a bucket overwrites it; it never double counts.
type HourlyAggregate struct {
	HourBucket  time.Time
	StationID   string
	AvgSpeed    float64
	MaxGust     float64
	AvgDir      int
	SampleCount int
}

// DailyAggregate is derived from hourly rollups for the multi-day history
// endpoint; it is never persisted separately.
type DailyAggregate struct {
	Date        string  `json:"date"`
	AvgSpeed    float64 `json:"avgSpeed"`
	MaxGust     float64 `json:"maxGust"`
	SampleCount int     `json:"sampleCount"`
}

type TrendClassification string

const (
	TrendIncreasingStrong TrendClassification = "increasing_strong"
	TrendIncreasing       TrendClassification = "increasing"
	TrendStable           TrendClassification = "stable"
	TrendDecreasing       TrendClassification = "decreasing"
	TrendDecreasingStrong TrendClassification = "decreasing_strong"
	TrendInsufficient     TrendClassification = "insufficient_data"
)

// TrendWindow compares the most recent analysis window against the one
// immediately preceding it. Derived on read, never persisted.
type TrendWindow struct {
	CurrentAvg     float64             `json:"currentAvg"`
	PreviousAvg    float64             `json:"previousAvg"`
	AbsoluteChange float64             `json:"absoluteChange"`
	PercentChange  float64             `json:"percentChange"`
	Classification TrendClassification `json:"classification"`
	WindowMinutes  int                 `json:"windowMinutes"`
	ComputedAt     time.Time           `json:"computedAt"`
}

// ForecastEntry is one predicted hour, optionally enriched with marine data
// and adjusted by the current correction factor.
type ForecastEntry struct {
	TargetTime       time.Time       `json:"targetTime"`
	Speed            float64         `json:"speed"`
	Gust             float64         `json:"gust"`
	Direction        int             `json:"direction"`
	PrecipProb       sql.NullInt64   `json:"-"`
	WaveHeight       sql.NullFloat64 `json:"-"`
	WaveDirection    sql.NullFloat64 `json:"-"`
	WavePeriod       sql.NullFloat64 `json:"-"`
	Corrected        bool            `json:"corrected"`
	CorrectionFactor float64         `json:"correctionFactorApplied"`
}

// ForecastSnapshot freezes a raw (uncorrected) prediction so it can later be
// compared against what actually happened at TargetTime.
type ForecastSnapshot struct {
	ID             int64
	CapturedAt     time.Time
	TargetTime     time.Time
	PredictedSpeed float64
	PredictedGust  float64
}

// CorrectionFactor is the single current multiplicative forecast adjustment.
// Neutral (1.0) until enough snapshot comparisons exist.
type CorrectionFactor struct {
	Value       float64   `json:"value"`
	SampleCount int       `json:"sampleCount"`
	ComputedAt  time.Time `json:"computedAt"`
}

// Subscription is one Web Push delivery registration.
type Subscription struct {
	Endpoint     string
	Auth         string
	P256dh       string
	RegisteredAt time.Time
}
