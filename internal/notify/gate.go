package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/metrics"
	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

// GateStore is the persistence the notification gate needs.
type GateStore interface {
	LastMeasurements(n int) ([]models.Measurement, error)
	Subscriptions() ([]models.Subscription, error)
	DeleteSubscription(endpoint string) error
	NotificationSentOn(date string) (bool, error)
	RecordNotification(date string) error
}

// Gate decides when the "wind is up" push goes out: only when the last few
// readings all clear the threshold, and at most once per local day.
type Gate struct {
	store    GateStore
	sender   Sender
	loc      *time.Location
	minSpeed float64
	window   int
}

func NewGate(store GateStore, sender Sender, loc *time.Location, minSpeed float64, window int) *Gate {
	return &Gate{
		store:    store,
		sender:   sender,
		loc:      loc,
		minSpeed: minSpeed,
		window:   window,
	}
}

type pushPayload struct {
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Speed     float64 `json:"speed"`
	Direction int     `json:"direction"`
}

// Evaluate checks the stability condition after a collection cycle and
// dispatches to all subscribers when it first holds on a given day. A
// delivery failure drops that one subscription at most, never the run.
func (g *Gate) Evaluate(ctx context.Context, now time.Time) error {
	recent, err := g.store.LastMeasurements(g.window)
	if err != nil {
		return fmt.Errorf("load recent measurements: %w", err)
	}
	if len(recent) < g.window {
		return nil
	}
	for _, m := range recent {
		if m.WindSpeed < g.minSpeed {
			return nil
		}
	}

	date := now.In(g.loc).Format("2006-01-02")
	sent, err := g.store.NotificationSentOn(date)
	if err != nil {
		return fmt.Errorf("check notification log: %w", err)
	}
	if sent {
		return nil
	}

	subs, err := g.store.Subscriptions()
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}

	latest := recent[0]
	payload, err := json.Marshal(pushPayload{
		Title:     "Wind is up",
		Body:      fmt.Sprintf("Holding %.1f m/s at %d deg", latest.WindSpeed, latest.WindDir),
		Speed:     latest.WindSpeed,
		Direction: latest.WindDir,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	delivered := 0
	for _, sub := range subs {
		if err := g.sender.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrEndpointGone) {
				log.Printf("notify: removing dead endpoint %s", sub.Endpoint)
				if derr := g.store.DeleteSubscription(sub.Endpoint); derr != nil {
					log.Printf("notify: remove subscription: %v", derr)
				}
				continue
			}
			log.Printf("notify: delivery to %s failed: %v", sub.Endpoint, err)
			continue
		}
		delivered++
		metrics.NotificationsSentTotal.Inc()
	}

	if err := g.store.RecordNotification(date); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	log.Printf("notify: wind alert for %s delivered to %d of %d subscribers", date, delivered, len(subs))
	return nil
}
