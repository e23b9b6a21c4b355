package store

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

func (s *Store) InsertSnapshot(snap models.ForecastSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO forecast_snapshots (captured_at, target_time, predicted_speed, predicted_gust)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(captured_at, target_time) DO NOTHING
	`, snap.CapturedAt, snap.TargetTime, snap.PredictedSpeed, snap.PredictedGust)
	return err
}

// MaturedSnapshots returns snapshots whose predicted hour has already passed,
// oldest first, so the evaluator can match them against reality.
func (s *Store) MaturedSnapshots(before time.Time) ([]models.ForecastSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, captured_at, target_time, predicted_speed, predicted_gust
		FROM forecast_snapshots
		WHERE target_time < ?
		ORDER BY target_time ASC
	`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ForecastSnapshot
	for rows.Next() {
		var snap models.ForecastSnapshot
		if err := rows.Scan(&snap.ID, &snap.CapturedAt, &snap.TargetTime, &snap.PredictedSpeed, &snap.PredictedGust); err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

func (s *Store) DeleteSnapshotsBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM forecast_snapshots WHERE target_time < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CorrectionFactor returns the current factor, defaulting to neutral when no
// evaluation has run yet. The factor row is owned by the accuracy evaluator;
// the forecast engine only ever reads it through here.
func (s *Store) CorrectionFactor() (models.CorrectionFactor, error) {
	var cf models.CorrectionFactor
	err := s.db.QueryRow(`
		SELECT value, sample_count, computed_at FROM correction_factor WHERE id = 1
	`).Scan(&cf.Value, &cf.SampleCount, &cf.ComputedAt)
	if err == sql.ErrNoRows {
		return models.CorrectionFactor{Value: 1.0}, nil
	}
	if err != nil {
		return models.CorrectionFactor{Value: 1.0}, err
	}
	return cf, nil
}

func (s *Store) SetCorrectionFactor(cf models.CorrectionFactor) error {
	_, err := s.db.Exec(`
		INSERT INTO correction_factor (id, value, sample_count, computed_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			value = excluded.value,
			sample_count = excluded.sample_count,
			computed_at = excluded.computed_at
	`, cf.Value, cf.SampleCount, cf.ComputedAt)
	return err
}

const calibrationKey = "direction_calibration"

// CalibrationOffset returns the persisted direction offset in degrees,
// zero when never set.
func (s *Store) CalibrationOffset() (float64, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, calibrationKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

func (s *Store) SetCalibrationOffset(offset float64) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, calibrationKey, strconv.FormatFloat(offset, 'f', -1, 64), time.Now().UTC())
	return err
}
