package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS measurements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station_id TEXT NOT NULL,
    measured_at DATETIME NOT NULL,
    wind_speed REAL NOT NULL,
    wind_gust REAL NOT NULL,
    wind_dir INTEGER NOT NULL,
    wind_dir_avg INTEGER,
    temp REAL,
    humidity INTEGER,
    pressure REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(station_id, measured_at)
);

CREATE TABLE IF NOT EXISTS hourly_aggregates (
    hour_bucket DATETIME NOT NULL,
    station_id TEXT NOT NULL,
    avg_speed REAL NOT NULL,
    max_gust REAL NOT NULL,
    avg_dir INTEGER NOT NULL,
    sample_count INTEGER NOT NULL,
    PRIMARY KEY (hour_bucket)
);

CREATE TABLE IF NOT EXISTS forecast_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    captured_at DATETIME NOT NULL,
    target_time DATETIME NOT NULL,
    predicted_speed REAL NOT NULL,
    predicted_gust REAL NOT NULL,
    UNIQUE(captured_at, target_time)
);

CREATE TABLE IF NOT EXISTS correction_factor (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    value REAL NOT NULL,
    sample_count INTEGER NOT NULL,
    computed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS subscriptions (
    endpoint TEXT PRIMARY KEY,
    auth TEXT NOT NULL,
    p256dh TEXT NOT NULL,
    registered_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_measurements_time ON measurements(measured_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_target ON forecast_snapshots(target_time);
`,
	},
	{
		Version:     2,
		Description: "Add notification log for the daily send gate",
		SQL: `
CREATE TABLE IF NOT EXISTS notification_log (
    date DATE PRIMARY KEY,
    sent_count INTEGER NOT NULL DEFAULT 0,
    last_sent_at DATETIME
);
`,
	},
	{
		Version:     3,
		Description: "Track running daily gust maximum on measurements",
		SQL: `
ALTER TABLE measurements ADD COLUMN max_daily_gust REAL;
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
