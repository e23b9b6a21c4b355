package store

import (
	"database/sql"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

func (s *Store) UpsertSubscription(sub models.Subscription) error {
	_, err := s.db.Exec(`
		INSERT INTO subscriptions (endpoint, auth, p256dh, registered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			auth = excluded.auth,
			p256dh = excluded.p256dh
	`, sub.Endpoint, sub.Auth, sub.P256dh, time.Now().UTC())
	return err
}

func (s *Store) DeleteSubscription(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE endpoint = ?`, endpoint)
	return err
}

func (s *Store) Subscriptions() ([]models.Subscription, error) {
	rows, err := s.db.Query(`SELECT endpoint, auth, p256dh, registered_at FROM subscriptions ORDER BY registered_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.Endpoint, &sub.Auth, &sub.P256dh, &sub.RegisteredAt); err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

// NotificationSentOn reports whether a push already went out on the given
// local calendar date ("2006-01-02").
func (s *Store) NotificationSentOn(date string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT sent_count FROM notification_log WHERE date = ?`, date).Scan(&count)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RecordNotification(date string) error {
	_, err := s.db.Exec(`
		INSERT INTO notification_log (date, sent_count, last_sent_at)
		VALUES (?, 1, ?)
		ON CONFLICT(date) DO UPDATE SET
			sent_count = sent_count + 1,
			last_sent_at = excluded.last_sent_at
	`, date, time.Now().UTC())
	return err
}
