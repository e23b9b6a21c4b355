package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/httputil"
	"github.com/jorikfon/JollyKite-sub001/internal/metrics"
)

// MarinePoint is the sea state forecast for one hour.
type MarinePoint struct {
	TargetTime    time.Time
	WaveHeight    float64
	WaveDirection float64
	WavePeriod    float64
}

// MarineFetcher produces the hourly sea state outlook. Marine data is
// enrichment only; the caller degrades to wind-only output when it fails.
type MarineFetcher interface {
	FetchMarine(ctx context.Context) ([]MarinePoint, error)
}

type MarineClient struct {
	client *http.Client
	lat    float64
	lon    float64
	days   int
}

func NewMarineClient(lat, lon float64, days int, timeout time.Duration) *MarineClient {
	return &MarineClient{
		client: httputil.NewClientTimeout(timeout),
		lat:    lat,
		lon:    lon,
		days:   days,
	}
}

type marineResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		WaveHeight    []float64 `json:"wave_height"`
		WaveDirection []float64 `json:"wave_direction"`
		WavePeriod    []float64 `json:"wave_period"`
	} `json:"hourly"`
}

func (c *MarineClient) FetchMarine(ctx context.Context) ([]MarinePoint, error) {
	url := fmt.Sprintf(
		"https://marine-api.open-meteo.com/v1/marine?latitude=%.4f&longitude=%.4f&hourly=wave_height,wave_direction,wave_period&forecast_days=%d&timezone=UTC",
		c.lat, c.lon, c.days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("marine", "error").Inc()
		return nil, fmt.Errorf("fetch marine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ForecastFetchesTotal.WithLabelValues("marine", "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch marine: status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("marine", "error").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}

	var data marineResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("marine", "error").Inc()
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	h := data.Hourly
	points := make([]MarinePoint, 0, len(h.Time))
	for i, raw := range h.Time {
		t, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			metrics.ForecastFetchesTotal.WithLabelValues("marine", "error").Inc()
			return nil, fmt.Errorf("bad marine time %q: %w", raw, err)
		}
		p := MarinePoint{TargetTime: t.UTC()}
		if i < len(h.WaveHeight) {
			p.WaveHeight = h.WaveHeight[i]
		}
		if i < len(h.WaveDirection) {
			p.WaveDirection = h.WaveDirection[i]
		}
		if i < len(h.WavePeriod) {
			p.WavePeriod = h.WavePeriod[i]
		}
		points = append(points, p)
	}

	metrics.ForecastFetchesTotal.WithLabelValues("marine", "ok").Inc()
	return points, nil
}
