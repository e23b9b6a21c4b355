package station

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	name     string
	priority int
	reading  *Reading
	err      error
	calls    int
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Priority() int { return f.priority }

func (f *fakeProvider) Fetch(ctx context.Context) (*Reading, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.reading
	return &r, nil
}

type fixedCalibration float64

func (c fixedCalibration) CalibrationOffset() (float64, error) { return float64(c), nil }

func goodReading(name string, speed float64, dir int) *Reading {
	return &Reading{
		StationID:  name,
		MeasuredAt: time.Now().UTC().Add(-2 * time.Minute),
		WindSpeed:  speed,
		WindGust:   speed + 2,
		WindDir:    dir,
	}
}

func TestCollect_PrimaryWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", priority: 1, reading: goodReading("primary", 8, 90)}
	backup := &fakeProvider{name: "backup", priority: 2, reading: goodReading("backup", 5, 180)}

	agg := NewAggregator(fixedCalibration(0), backup, primary)
	m, err := agg.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.StationID != "primary" {
		t.Errorf("StationID = %q, want primary despite registration order", m.StationID)
	}
	if backup.calls != 0 {
		t.Errorf("backup fetched %d times, want 0 when primary is healthy", backup.calls)
	}
}

func TestCollect_FailsOverOnError(t *testing.T) {
	primary := &fakeProvider{name: "primary", priority: 1, err: errors.New("timeout")}
	backup := &fakeProvider{name: "backup", priority: 2, reading: goodReading("backup", 6, 120)}

	agg := NewAggregator(fixedCalibration(0), primary, backup)
	m, err := agg.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.StationID != "backup" {
		t.Errorf("StationID = %q, want backup", m.StationID)
	}
	if m.WindSpeed != 6 || m.WindDir != 120 {
		t.Errorf("reading = %v m/s @ %d, want 6 @ 120", m.WindSpeed, m.WindDir)
	}
	if primary.calls != 1 {
		t.Errorf("primary fetched %d times, want exactly 1 (no inline retry)", primary.calls)
	}
}

func TestCollect_FailsOverOnInvalidReading(t *testing.T) {
	bad := goodReading("primary", 8, 90)
	bad.MeasuredAt = time.Now().UTC().Add(-2 * time.Hour) // stale
	primary := &fakeProvider{name: "primary", priority: 1, reading: bad}
	backup := &fakeProvider{name: "backup", priority: 2, reading: goodReading("backup", 6, 120)}

	agg := NewAggregator(fixedCalibration(0), primary, backup)
	m, err := agg.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.StationID != "backup" {
		t.Errorf("StationID = %q, want backup after stale primary reading", m.StationID)
	}
}

func TestCollect_AllFail(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, err: errors.New("down")}
	b := &fakeProvider{name: "b", priority: 2, err: errors.New("down too")}

	agg := NewAggregator(fixedCalibration(0), a, b)
	m, err := agg.Collect(context.Background())
	if !errors.Is(err, ErrAllStationsFailed) {
		t.Fatalf("err = %v, want ErrAllStationsFailed", err)
	}
	if m != nil {
		t.Errorf("measurement = %+v, want nil when every station fails", m)
	}
}

func TestCollect_AppliesCalibration(t *testing.T) {
	p := &fakeProvider{name: "primary", priority: 1, reading: goodReading("primary", 8, 350)}

	agg := NewAggregator(fixedCalibration(20), p)
	m, err := agg.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.WindDir != 10 {
		t.Errorf("WindDir = %d, want 10 (350 + 20 wrapped)", m.WindDir)
	}
}

func TestCollect_NegativeCalibrationWraps(t *testing.T) {
	p := &fakeProvider{name: "primary", priority: 1, reading: goodReading("primary", 8, 5)}

	agg := NewAggregator(fixedCalibration(-15), p)
	m, err := agg.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if m.WindDir != 350 {
		t.Errorf("WindDir = %d, want 350 (5 - 15 wrapped)", m.WindDir)
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	good := &Reading{MeasuredAt: now.Add(-5 * time.Minute), WindSpeed: 8, WindGust: 10, WindDir: 90}
	if flags := Validate(good, now); len(flags) != 0 {
		t.Errorf("flags = %v, want none for a good reading", flags)
	}

	cases := []struct {
		name   string
		mutate func(*Reading)
		want   string
	}{
		{"negative speed", func(r *Reading) { r.WindSpeed = -1 }, FlagSpeedOutOfRange},
		{"absurd speed", func(r *Reading) { r.WindSpeed = 80; r.WindGust = 90 }, FlagSpeedOutOfRange},
		{"gust below speed", func(r *Reading) { r.WindGust = 5 }, FlagGustBelowSpeed},
		{"direction out of range", func(r *Reading) { r.WindDir = 400 }, FlagDirInvalid},
		{"stale", func(r *Reading) { r.MeasuredAt = now.Add(-45 * time.Minute) }, FlagTimestampStale},
		{"future", func(r *Reading) { r.MeasuredAt = now.Add(10 * time.Minute) }, FlagTimestampStale},
	}
	for _, c := range cases {
		r := *good
		c.mutate(&r)
		flags := Validate(&r, now)
		found := false
		for _, f := range flags {
			if f == c.want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: flags = %v, want to contain %s", c.name, flags, c.want)
		}
	}
}
