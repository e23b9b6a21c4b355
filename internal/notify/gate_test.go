package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

type fakeGateStore struct {
	recent []models.Measurement
	subs   []models.Subscription
	log    map[string]bool
}

func newFakeGateStore() *fakeGateStore {
	return &fakeGateStore{log: make(map[string]bool)}
}

func (s *fakeGateStore) LastMeasurements(n int) ([]models.Measurement, error) {
	if len(s.recent) < n {
		return s.recent, nil
	}
	return s.recent[:n], nil
}

func (s *fakeGateStore) Subscriptions() ([]models.Subscription, error) {
	out := make([]models.Subscription, len(s.subs))
	copy(out, s.subs)
	return out, nil
}

func (s *fakeGateStore) DeleteSubscription(endpoint string) error {
	var kept []models.Subscription
	for _, sub := range s.subs {
		if sub.Endpoint != endpoint {
			kept = append(kept, sub)
		}
	}
	s.subs = kept
	return nil
}

func (s *fakeGateStore) NotificationSentOn(date string) (bool, error) {
	return s.log[date], nil
}

func (s *fakeGateStore) RecordNotification(date string) error {
	s.log[date] = true
	return nil
}

type fakeSender struct {
	sent map[string]int
	fail map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeSender) Send(ctx context.Context, sub models.Subscription, payload []byte) error {
	if err := f.fail[sub.Endpoint]; err != nil {
		return err
	}
	f.sent[sub.Endpoint]++
	return nil
}

func (f *fakeSender) total() int {
	n := 0
	for _, c := range f.sent {
		n += c
	}
	return n
}

func steadyWind(speed float64, n int) []models.Measurement {
	ms := make([]models.Measurement, n)
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := range ms {
		ms[i] = models.Measurement{MeasuredAt: at.Add(-time.Duration(i) * time.Minute), WindSpeed: speed, WindDir: 90}
	}
	return ms
}

func testGate(store *fakeGateStore, sender Sender) *Gate {
	loc, _ := time.LoadLocation("Europe/Moscow")
	return NewGate(store, sender, loc, 7, 3)
}

func TestEvaluate_SendsWhenWindHolds(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(8, 3)
	store.subs = []models.Subscription{{Endpoint: "https://push/a"}, {Endpoint: "https://push/b"}}
	sender := newFakeSender()

	gate := testGate(store, sender)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := gate.Evaluate(context.Background(), now); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sender.total() != 2 {
		t.Errorf("sent = %d, want one per subscriber", sender.total())
	}
}

func TestEvaluate_AtMostOncePerDay(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(9, 3)
	store.subs = []models.Subscription{{Endpoint: "https://push/a"}}
	sender := newFakeSender()

	gate := testGate(store, sender)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		if err := gate.Evaluate(context.Background(), now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Evaluate cycle %d: %v", i, err)
		}
	}
	if sender.total() != 1 {
		t.Errorf("sent = %d over 50 cycles, want exactly 1", sender.total())
	}
}

func TestEvaluate_ResendsNextDay(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(9, 3)
	store.subs = []models.Subscription{{Endpoint: "https://push/a"}}
	sender := newFakeSender()

	gate := testGate(store, sender)
	day1 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := gate.Evaluate(context.Background(), day1); err != nil {
		t.Fatalf("Evaluate day 1: %v", err)
	}
	if err := gate.Evaluate(context.Background(), day1.Add(24*time.Hour)); err != nil {
		t.Fatalf("Evaluate day 2: %v", err)
	}
	if sender.total() != 2 {
		t.Errorf("sent = %d across two days, want 2", sender.total())
	}
}

func TestEvaluate_RequiresEverySampleAboveThreshold(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(9, 3)
	store.recent[1].WindSpeed = 5 // one lull breaks the streak
	store.subs = []models.Subscription{{Endpoint: "https://push/a"}}
	sender := newFakeSender()

	gate := testGate(store, sender)
	if err := gate.Evaluate(context.Background(), time.Now()); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sender.total() != 0 {
		t.Errorf("sent = %d with a lull in the window, want 0", sender.total())
	}
}

func TestEvaluate_TooFewSamples(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(12, 2)
	store.subs = []models.Subscription{{Endpoint: "https://push/a"}}
	sender := newFakeSender()

	gate := testGate(store, sender)
	if err := gate.Evaluate(context.Background(), time.Now()); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sender.total() != 0 {
		t.Errorf("sent = %d with too few samples, want 0", sender.total())
	}
}

func TestEvaluate_RemovesGoneEndpoint(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(9, 3)
	store.subs = []models.Subscription{
		{Endpoint: "https://push/dead"},
		{Endpoint: "https://push/alive"},
	}
	sender := newFakeSender()
	sender.fail["https://push/dead"] = ErrEndpointGone

	gate := testGate(store, sender)
	if err := gate.Evaluate(context.Background(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sender.sent["https://push/alive"] != 1 {
		t.Errorf("alive endpoint sent = %d, want 1", sender.sent["https://push/alive"])
	}
	if len(store.subs) != 1 || store.subs[0].Endpoint != "https://push/alive" {
		t.Errorf("subs = %+v, want only the alive endpoint left", store.subs)
	}
}

func TestEvaluate_TransientFailureKeepsSubscription(t *testing.T) {
	store := newFakeGateStore()
	store.recent = steadyWind(9, 3)
	store.subs = []models.Subscription{
		{Endpoint: "https://push/flaky"},
		{Endpoint: "https://push/ok"},
	}
	sender := newFakeSender()
	sender.fail["https://push/flaky"] = errors.New("502 from push service")

	gate := testGate(store, sender)
	if err := gate.Evaluate(context.Background(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(store.subs) != 2 {
		t.Errorf("subs = %d, want both kept on a transient failure", len(store.subs))
	}
	if sender.sent["https://push/ok"] != 1 {
		t.Errorf("ok endpoint sent = %d, want 1", sender.sent["https://push/ok"])
	}
}
