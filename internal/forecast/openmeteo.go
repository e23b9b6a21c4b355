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

// WindPoint is one predicted hour from the weather model, in m/s and degrees.
type WindPoint struct {
	TargetTime time.Time
	Speed      float64
	Gust       float64
	Direction  int
	PrecipProb *int
}

// WindFetcher produces the hourly wind outlook for the spot.
type WindFetcher interface {
	FetchWind(ctx context.Context) ([]WindPoint, error)
}

// OpenMeteoClient fetches the hourly wind forecast from the Open-Meteo API.
// No API key required.
type OpenMeteoClient struct {
	client *http.Client
	lat    float64
	lon    float64
	days   int
}

func NewOpenMeteoClient(lat, lon float64, days int, timeout time.Duration) *OpenMeteoClient {
	return &OpenMeteoClient{
		client: httputil.NewClientTimeout(timeout),
		lat:    lat,
		lon:    lon,
		days:   days,
	}
}

type openMeteoResponse struct {
	Hourly struct {
		Time            []string  `json:"time"`
		WindSpeed       []float64 `json:"wind_speed_10m"`
		WindGusts       []float64 `json:"wind_gusts_10m"`
		WindDirection   []int     `json:"wind_direction_10m"`
		PrecipitationPr []*int    `json:"precipitation_probability"`
	} `json:"hourly"`
}

func (c *OpenMeteoClient) FetchWind(ctx context.Context) ([]WindPoint, error) {
	url := fmt.Sprintf(
		"https://api.open-meteo.com/v1/forecast?latitude=%.4f&longitude=%.4f&hourly=wind_speed_10m,wind_gusts_10m,wind_direction_10m,precipitation_probability&windspeed_unit=ms&forecast_days=%d&timezone=UTC",
		c.lat, c.lon, c.days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("openmeteo", "error").Inc()
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ForecastFetchesTotal.WithLabelValues("openmeteo", "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch forecast: status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("openmeteo", "error").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}

	var data openMeteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("openmeteo", "error").Inc()
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	points, err := parseWindHourly(data)
	if err != nil {
		metrics.ForecastFetchesTotal.WithLabelValues("openmeteo", "error").Inc()
		return nil, err
	}

	metrics.ForecastFetchesTotal.WithLabelValues("openmeteo", "ok").Inc()
	return points, nil
}

func parseWindHourly(data openMeteoResponse) ([]WindPoint, error) {
	h := data.Hourly
	if len(h.Time) == 0 {
		return nil, fmt.Errorf("forecast payload has no hours")
	}
	if len(h.WindSpeed) != len(h.Time) || len(h.WindGusts) != len(h.Time) || len(h.WindDirection) != len(h.Time) {
		return nil, fmt.Errorf("forecast payload arrays disagree: %d times, %d speeds", len(h.Time), len(h.WindSpeed))
	}

	points := make([]WindPoint, 0, len(h.Time))
	for i, raw := range h.Time {
		t, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			return nil, fmt.Errorf("bad forecast time %q: %w", raw, err)
		}
		p := WindPoint{
			TargetTime: t.UTC(),
			Speed:      h.WindSpeed[i],
			Gust:       h.WindGusts[i],
			Direction:  h.WindDirection[i],
		}
		if i < len(h.PrecipitationPr) && h.PrecipitationPr[i] != nil {
			v := *h.PrecipitationPr[i]
			p.PrecipProb = &v
		}
		points = append(points, p)
	}
	return points, nil
}
