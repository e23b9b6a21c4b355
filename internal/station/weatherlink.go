package station

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/httputil"
)

// WeatherLink is the primary station: a Davis console publishing imperial
// units (mph, °F, inHg) through the WeatherLink current-conditions API.
type WeatherLink struct {
	name     string
	priority int
	url      string
	client   *http.Client
}

func NewWeatherLink(name, url string, priority int) *WeatherLink {
	return &WeatherLink{
		name:     name,
		priority: priority,
		url:      url,
		client:   httputil.NewClient(),
	}
}

func (w *WeatherLink) Name() string  { return w.name }
func (w *WeatherLink) Priority() int { return w.priority }

type weatherLinkResponse struct {
	Sensors []struct {
		Data []struct {
			Ts                  int64    `json:"ts"`
			WindSpeedLast       *float64 `json:"wind_speed_last"`
			WindSpeedHi10Min    *float64 `json:"wind_speed_hi_last_10_min"`
			WindSpeedHiDay      *float64 `json:"wind_speed_hi_day"`
			WindDirLast         *int     `json:"wind_dir_last"`
			WindDirScalarAvg10m *int     `json:"wind_dir_scalar_avg_last_10_min"`
			Temp                *float64 `json:"temp"`
			Hum                 *float64 `json:"hum"`
			BarSeaLevel         *float64 `json:"bar_sea_level"`
		} `json:"data"`
	} `json:"sensors"`
}

func (w *WeatherLink) Fetch(ctx context.Context) (*Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", w.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", w.name, resp.StatusCode, string(b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var data weatherLinkResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	for _, sensor := range data.Sensors {
		for _, d := range sensor.Data {
			if d.WindSpeedLast == nil || d.WindDirLast == nil {
				continue
			}

			r := &Reading{
				StationID:  w.name,
				MeasuredAt: time.Unix(d.Ts, 0).UTC(),
				WindSpeed:  *d.WindSpeedLast * mphToMs,
				WindDir:    *d.WindDirLast,
			}
			// Gust falls back to instantaneous speed when the 10-min high
			// is missing, never below it.
			r.WindGust = r.WindSpeed
			if d.WindSpeedHi10Min != nil {
				r.WindGust = *d.WindSpeedHi10Min * mphToMs
			}
			if d.WindSpeedHiDay != nil {
				g := *d.WindSpeedHiDay * mphToMs
				r.MaxDailyGust = &g
			}
			if d.WindDirScalarAvg10m != nil {
				avg := *d.WindDirScalarAvg10m
				r.WindDirAvg = &avg
			}
			if d.Temp != nil {
				c := (*d.Temp - 32) * 5 / 9
				r.Temp = &c
			}
			if d.Hum != nil {
				h := int(*d.Hum)
				r.Humidity = &h
			}
			if d.BarSeaLevel != nil {
				hpa := *d.BarSeaLevel * 33.8639
				r.Pressure = &hpa
			}
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: no wind data in response", ErrMalformedPayload)
}
