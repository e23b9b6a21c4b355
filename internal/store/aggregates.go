package store

import (
	"database/sql"
	"math"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

// ComputeHourlyAggregate rolls up all raw measurements in the closed hour
// starting at hour (UTC, truncated). Direction uses a circular mean so a
// bucket straddling north does not average to south. Returns nil when the
// hour holds no measurements.
func (s *Store) ComputeHourlyAggregate(hour time.Time) (*models.HourlyAggregate, error) {
	start := hour.Truncate(time.Hour)
	end := start.Add(time.Hour)

	rows, err := s.db.Query(`
		SELECT station_id, wind_speed, wind_gust, wind_dir
		FROM measurements
		WHERE measured_at >= ? AND measured_at < ?
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		count          int
		speedSum       float64
		maxGust        float64
		sinSum, cosSum float64
		stationID      string
	)
	for rows.Next() {
		var sid string
		var speed, gust float64
		var dir int
		if err := rows.Scan(&sid, &speed, &gust, &dir); err != nil {
			return nil, err
		}
		count++
		speedSum += speed
		if gust > maxGust {
			maxGust = gust
		}
		rad := float64(dir) * math.Pi / 180
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
		stationID = sid
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	avgDir := int(math.Round(math.Atan2(sinSum, cosSum) * 180 / math.Pi))
	if avgDir < 0 {
		avgDir += 360
	}

	return &models.HourlyAggregate{
		HourBucket:  start,
		StationID:   stationID,
		AvgSpeed:    speedSum / float64(count),
		MaxGust:     maxGust,
		AvgDir:      avgDir % 360,
		SampleCount: count,
	}, nil
}

// UpsertHourlyAggregate overwrites the bucket so recomputation is idempotent.
func (s *Store) UpsertHourlyAggregate(a models.HourlyAggregate) error {
	_, err := s.db.Exec(`
		INSERT INTO hourly_aggregates (hour_bucket, station_id, avg_speed, max_gust, avg_dir, sample_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hour_bucket) DO UPDATE SET
			station_id = excluded.station_id,
			avg_speed = excluded.avg_speed,
			max_gust = excluded.max_gust,
			avg_dir = excluded.avg_dir,
			sample_count = excluded.sample_count
	`, a.HourBucket, a.StationID, a.AvgSpeed, a.MaxGust, a.AvgDir, a.SampleCount)
	return err
}

func (s *Store) HourlyAggregates(start, end time.Time) ([]models.HourlyAggregate, error) {
	rows, err := s.db.Query(`
		SELECT hour_bucket, station_id, avg_speed, max_gust, avg_dir, sample_count
		FROM hourly_aggregates
		WHERE hour_bucket >= ? AND hour_bucket <= ?
		ORDER BY hour_bucket ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.HourlyAggregate
	for rows.Next() {
		var a models.HourlyAggregate
		if err := rows.Scan(&a.HourBucket, &a.StationID, &a.AvgSpeed, &a.MaxGust, &a.AvgDir, &a.SampleCount); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// DailyHistory folds hourly aggregates into per-day rows for the last n days.
// Averages are weighted by each bucket's sample count.
func (s *Store) DailyHistory(days int) ([]models.DailyAggregate, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.Query(`
		SELECT SUBSTR(hour_bucket, 1, 10) AS day,
		       SUM(avg_speed * sample_count) / SUM(sample_count),
		       MAX(max_gust),
		       SUM(sample_count)
		FROM hourly_aggregates
		WHERE hour_bucket >= ?
		GROUP BY day
		ORDER BY day ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.DailyAggregate
	for rows.Next() {
		var d models.DailyAggregate
		var avg sql.NullFloat64
		if err := rows.Scan(&d.Date, &avg, &d.MaxGust, &d.SampleCount); err != nil {
			return nil, err
		}
		if avg.Valid {
			d.AvgSpeed = avg.Float64
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
