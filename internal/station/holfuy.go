package station

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jorikfon/JollyKite-sub001/internal/httputil"
)

// Holfuy is a fallback community station. Its payload shape drifts between
// firmware versions (flat vs nested wind object, varying unit field), so the
// fields are picked out with gjson rather than a rigid struct.
type Holfuy struct {
	name     string
	priority int
	url      string
	client   *http.Client
}

func NewHolfuy(name, url string, priority int) *Holfuy {
	return &Holfuy{
		name:     name,
		priority: priority,
		url:      url,
		client:   httputil.NewClient(),
	}
}

func (h *Holfuy) Name() string  { return h.name }
func (h *Holfuy) Priority() int { return h.priority }

func (h *Holfuy) Fetch(ctx context.Context) (*Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", h.name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedPayload)
	}

	speed := gjson.GetBytes(body, "wind.speed")
	if !speed.Exists() {
		speed = gjson.GetBytes(body, "windSpeed")
	}
	dir := gjson.GetBytes(body, "wind.direction")
	if !dir.Exists() {
		dir = gjson.GetBytes(body, "windDirection")
	}
	if !speed.Exists() || !dir.Exists() {
		return nil, fmt.Errorf("%w: missing wind fields", ErrMalformedPayload)
	}

	factor := unitFactor(gjson.GetBytes(body, "wind.unit").String())

	r := &Reading{
		StationID:  h.name,
		MeasuredAt: time.Now().UTC(),
		WindSpeed:  speed.Float() * factor,
		WindDir:    int(dir.Int()),
	}
	r.WindGust = r.WindSpeed
	if gust := gjson.GetBytes(body, "wind.gust"); gust.Exists() {
		r.WindGust = gust.Float() * factor
	}

	if ts := gjson.GetBytes(body, "dateTime"); ts.Exists() {
		if t, err := time.Parse("2006-01-02 15:04:05", ts.String()); err == nil {
			r.MeasuredAt = t.UTC()
		}
	}
	if v := gjson.GetBytes(body, "airData.temperature"); v.Exists() {
		c := v.Float()
		r.Temp = &c
	}
	if v := gjson.GetBytes(body, "airData.humidity"); v.Exists() {
		hum := int(v.Int())
		r.Humidity = &hum
	}
	if v := gjson.GetBytes(body, "airData.pressure"); v.Exists() {
		p := v.Float()
		r.Pressure = &p
	}

	return r, nil
}

func unitFactor(unit string) float64 {
	switch unit {
	case "km/h", "kmh":
		return kmhToMs
	case "mph":
		return mphToMs
	case "knots", "kt":
		return knotsToMs
	default:
		// Holfuy defaults to m/s when the unit field is absent.
		return 1
	}
}
