package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// Open opens the SQLite database and runs migrations, retrying while a
// leftover WAL lock (backup, previous instance shutting down) clears.
func Open(path string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	s := New(db, loc)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	operation := func() error {
		if err := db.Ping(); err != nil {
			return err
		}
		return s.Migrate()
	}
	if err := backoff.Retry(operation, bo); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertMeasurement appends one reading. The (station_id, measured_at) pair
// is unique; a duplicate write is a no-op so re-ingesting never duplicates.
func (s *Store) InsertMeasurement(m models.Measurement) error {
	_, err := s.db.Exec(`
		INSERT INTO measurements (station_id, measured_at, wind_speed, wind_gust, max_daily_gust, wind_dir, wind_dir_avg, temp, humidity, pressure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id, measured_at) DO NOTHING
	`, m.StationID, m.MeasuredAt, m.WindSpeed, m.WindGust, m.MaxDailyGust, m.WindDir, m.WindDirAvg, m.Temp, m.Humidity, m.Pressure)
	return err
}

const measurementColumns = `id, station_id, measured_at, wind_speed, wind_gust, max_daily_gust, wind_dir, wind_dir_avg, temp, humidity, pressure, created_at`

func scanMeasurement(row interface{ Scan(...any) error }) (models.Measurement, error) {
	var m models.Measurement
	err := row.Scan(&m.ID, &m.StationID, &m.MeasuredAt, &m.WindSpeed, &m.WindGust, &m.MaxDailyGust, &m.WindDir, &m.WindDirAvg, &m.Temp, &m.Humidity, &m.Pressure, &m.CreatedAt)
	return m, err
}

func (s *Store) LatestMeasurement() (*models.Measurement, error) {
	row := s.db.QueryRow(`
		SELECT ` + measurementColumns + `
		FROM measurements
		ORDER BY measured_at DESC
		LIMIT 1
	`)
	m, err := scanMeasurement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// LastMeasurements returns the most recent n readings, newest first.
func (s *Store) LastMeasurements(n int) ([]models.Measurement, error) {
	rows, err := s.db.Query(`
		SELECT `+measurementColumns+`
		FROM measurements
		ORDER BY measured_at DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// MeasurementsBetween returns readings in [start, end], oldest first.
func (s *Store) MeasurementsBetween(start, end time.Time) ([]models.Measurement, error) {
	rows, err := s.db.Query(`
		SELECT `+measurementColumns+`
		FROM measurements
		WHERE measured_at >= ? AND measured_at <= ?
		ORDER BY measured_at ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) MeasurementsSince(t time.Time) ([]models.Measurement, error) {
	return s.MeasurementsBetween(t, time.Now().UTC())
}

// NearestMeasurement returns the reading closest to target within the given
// tolerance, or nil when nothing falls inside the band.
func (s *Store) NearestMeasurement(target time.Time, tolerance time.Duration) (*models.Measurement, error) {
	start := target.Add(-tolerance)
	end := target.Add(tolerance)
	targetUnix := target.Unix()

	row := s.db.QueryRow(`
		SELECT `+measurementColumns+`
		FROM measurements
		WHERE measured_at >= ? AND measured_at <= ?
		ORDER BY ABS(strftime('%s', substr(measured_at, 1, 19)) - ?)
		LIMIT 1
	`, start, end, targetUnix)
	m, err := scanMeasurement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type WindowStats struct {
	MinSpeed sql.NullFloat64 `json:"minSpeed"`
	MaxSpeed sql.NullFloat64 `json:"maxSpeed"`
	AvgSpeed sql.NullFloat64 `json:"avgSpeed"`
	MaxGust  sql.NullFloat64 `json:"maxGust"`
	Samples  int             `json:"samples"`
}

// Stats computes min/max/avg speed and max gust over [start, end].
func (s *Store) Stats(start, end time.Time) (*WindowStats, error) {
	var st WindowStats
	err := s.db.QueryRow(`
		SELECT MIN(wind_speed), MAX(wind_speed), AVG(wind_speed), MAX(wind_gust), COUNT(*)
		FROM measurements
		WHERE measured_at >= ? AND measured_at <= ?
	`, start, end).Scan(&st.MinSpeed, &st.MaxSpeed, &st.AvgSpeed, &st.MaxGust, &st.Samples)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// DeleteMeasurementsBefore prunes raw rows older than cutoff and reports how
// many were removed. Hourly aggregates are untouched.
func (s *Store) DeleteMeasurementsBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM measurements WHERE measured_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
