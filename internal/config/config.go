package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrCalibrationRange is returned when a direction calibration value falls
// outside the accepted [-180, 180] range.
var ErrCalibrationRange = errors.New("calibration offset must be within [-180, 180]")

// Config is the environment-driven configuration for the whole process.
// Every field is injectable via env so deployments never patch the binary.
type Config struct {
	DBPath string `name:"db" env:"DB_PATH" default:"data/jollykite.db" help:"Path to SQLite database."`
	Port   string `name:"port" env:"PORT" default:"8080" help:"HTTP listen port."`

	Timezone string  `env:"TIMEZONE" default:"Europe/Moscow" help:"Local timezone for the operating window."`
	SpotLat  float64 `env:"SPOT_LAT" default:"46.633" help:"Spot latitude."`
	SpotLon  float64 `env:"SPOT_LON" default:"37.724" help:"Spot longitude."`

	CollectInterval time.Duration `env:"COLLECT_INTERVAL" default:"1m" help:"Telemetry collection cadence."`
	ArchiveInterval time.Duration `env:"ARCHIVE_INTERVAL" default:"1h" help:"Hourly rollup cadence."`

	WindowStartHour int `env:"WINDOW_START_HOUR" default:"6" help:"Operating window start (local hour)."`
	WindowEndHour   int `env:"WINDOW_END_HOUR" default:"19" help:"Operating window end (local hour, exclusive)."`

	RawRetention      time.Duration `env:"RAW_RETENTION" default:"168h" help:"Raw measurement retention."`
	SnapshotRetention time.Duration `env:"SNAPSHOT_RETENTION" default:"336h" help:"Forecast snapshot retention."`

	TrendStablePct float64 `env:"TREND_STABLE_PCT" default:"10" help:"Percent change below which the trend is stable."`
	TrendStrongPct float64 `env:"TREND_STRONG_PCT" default:"25" help:"Percent change at which a trend counts as strong."`

	ForecastDays     int           `env:"FORECAST_DAYS" default:"3" help:"Days of forecast to fetch."`
	ForecastTimeout  time.Duration `env:"FORECAST_TIMEOUT" default:"20s" help:"Per-call forecast fetch timeout."`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" default:"3h" help:"Forecast snapshot capture cadence."`

	NotifyMinSpeed float64 `env:"NOTIFY_MIN_SPEED" default:"7" help:"Rideable wind threshold, m/s."`
	NotifyWindow   int     `env:"NOTIFY_WINDOW" default:"3" help:"Consecutive samples that must hold the threshold."`

	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY" help:"Web Push VAPID public key."`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY" help:"Web Push VAPID private key."`
	VAPIDSubscriber string `env:"VAPID_SUBSCRIBER" default:"mailto:admin@jollykite.ru" help:"Web Push contact."`

	WeatherLinkURL string `env:"WEATHERLINK_URL" help:"Primary station endpoint."`
	HolfuyURL      string `env:"HOLFUY_URL" help:"Secondary station endpoint."`
	MetFeedHost    string `env:"METFEED_HOST" help:"Met-service FTP host (host:port)."`
	MetFeedPath    string `env:"METFEED_PATH" help:"Observation file path on the FTP host."`

	NoPoll   bool `name:"no-poll" help:"Disable scheduled jobs (server only, for local dev)."`
	Once     bool `name:"once" help:"Run a single collection cycle and exit."`
	Evaluate bool `name:"evaluate" help:"Run the daily accuracy evaluation and exit."`
}

// Validate rejects combinations the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.WindowStartHour < 0 || c.WindowStartHour > 23 || c.WindowEndHour < 1 || c.WindowEndHour > 24 {
		return fmt.Errorf("operating window hours out of range: %d-%d", c.WindowStartHour, c.WindowEndHour)
	}
	if c.WindowStartHour >= c.WindowEndHour {
		return fmt.Errorf("operating window start %d must precede end %d", c.WindowStartHour, c.WindowEndHour)
	}
	if c.CollectInterval <= 0 {
		return fmt.Errorf("collect interval must be positive, got %s", c.CollectInterval)
	}
	if c.NotifyWindow < 1 {
		return fmt.Errorf("notify window must be at least 1, got %d", c.NotifyWindow)
	}
	return nil
}

// ValidateCalibration checks a direction offset before it is persisted.
// Values are rejected, never silently clamped.
func ValidateCalibration(offset float64) error {
	if offset < -180 || offset > 180 {
		return fmt.Errorf("%w: got %.1f", ErrCalibrationRange, offset)
	}
	return nil
}
