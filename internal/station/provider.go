package station

import (
	"context"
	"errors"
	"time"
)

// ErrAllStationsFailed is returned when every configured provider either
// failed to respond or produced an unusable payload.
var ErrAllStationsFailed = errors.New("all stations failed")

// ErrMalformedPayload marks a provider response that parsed but did not
// contain a usable observation. Treated exactly like a fetch failure.
var ErrMalformedPayload = errors.New("malformed provider payload")

// Reading is a raw observation from one provider, already converted to
// canonical units (m/s, degrees, °C, hPa) but not yet calibrated.
type Reading struct {
	StationID    string
	MeasuredAt   time.Time
	WindSpeed    float64
	WindGust     float64
	MaxDailyGust *float64
	WindDir      int
	WindDirAvg   *int
	Temp         *float64
	Humidity     *int
	Pressure     *float64
}

// Provider fetches one station's current observation. Implementations must
// not retry internally; a failed cycle is simply retried on the next tick.
type Provider interface {
	Name() string
	Priority() int
	Fetch(ctx context.Context) (*Reading, error)
}

const (
	mphToMs   = 0.44704
	kmhToMs   = 1.0 / 3.6
	knotsToMs = 0.514444
)

const (
	FlagSpeedOutOfRange = "speed_out_of_range"
	FlagGustBelowSpeed  = "gust_below_speed"
	FlagDirInvalid      = "dir_invalid"
	FlagTimestampStale  = "timestamp_stale"
	FlagHumidityInvalid = "humidity_invalid"
	FlagPressureInvalid = "pressure_out_of_range"
)

// Validate returns the list of problems that make a reading unusable.
// An empty result means the reading may be written.
func Validate(r *Reading, now time.Time) []string {
	var flags []string

	if r.WindSpeed < 0 || r.WindSpeed > 60 {
		flags = append(flags, FlagSpeedOutOfRange)
	}
	if r.WindGust < r.WindSpeed {
		flags = append(flags, FlagGustBelowSpeed)
	}
	if r.WindDir < 0 || r.WindDir > 360 {
		flags = append(flags, FlagDirInvalid)
	}
	if now.Sub(r.MeasuredAt) > 30*time.Minute || r.MeasuredAt.After(now.Add(5*time.Minute)) {
		flags = append(flags, FlagTimestampStale)
	}
	if r.Humidity != nil && (*r.Humidity < 0 || *r.Humidity > 100) {
		flags = append(flags, FlagHumidityInvalid)
	}
	if r.Pressure != nil && (*r.Pressure < 900 || *r.Pressure > 1100) {
		flags = append(flags, FlagPressureInvalid)
	}

	return flags
}
