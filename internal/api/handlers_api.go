package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/config"
	"github.com/jorikfon/JollyKite-sub001/internal/models"
	"github.com/jorikfon/JollyKite-sub001/internal/trend"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

type currentResponse struct {
	Wind       models.WindSample `json:"wind"`
	Assessment trend.Assessment  `json:"assessment"`
	AgeSeconds int               `json:"ageSeconds"`
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.LatestMeasurement()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "no measurements yet")
		return
	}

	writeJSON(w, http.StatusOK, currentResponse{
		Wind:       models.NewWindSample(*m),
		Assessment: trend.Assess(m.WindSpeed, m.WindDir),
		AgeSeconds: int(time.Since(m.MeasuredAt).Seconds()),
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	recent, err := s.store.MeasurementsSince(now.Add(-65 * time.Minute))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tw := trend.Compute(recent, now, trend.Thresholds{
		StablePct: s.cfg.TrendStablePct,
		StrongPct: s.cfg.TrendStrongPct,
	})
	writeJSON(w, http.StatusOK, tw)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 168)
	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)

	measurements, err := s.store.MeasurementsBetween(start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	samples := make([]models.WindSample, 0, len(measurements))
	for _, m := range measurements {
		samples = append(samples, models.NewWindSample(m))
	}
	writeJSON(w, http.StatusOK, samples)
}

type statsResponse struct {
	Hours    int      `json:"hours"`
	MinSpeed *float64 `json:"minSpeed"`
	MaxSpeed *float64 `json:"maxSpeed"`
	AvgSpeed *float64 `json:"avgSpeed"`
	MaxGust  *float64 `json:"maxGust"`
	Samples  int      `json:"samples"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 168)
	end := time.Now().UTC()

	stats, err := s.store.Stats(end.Add(-time.Duration(hours)*time.Hour), end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := statsResponse{Hours: hours, Samples: stats.Samples}
	if stats.MinSpeed.Valid {
		resp.MinSpeed = &stats.MinSpeed.Float64
	}
	if stats.MaxSpeed.Valid {
		resp.MaxSpeed = &stats.MaxSpeed.Float64
	}
	if stats.AvgSpeed.Valid {
		resp.AvgSpeed = &stats.AvgSpeed.Float64
	}
	if stats.MaxGust.Valid {
		resp.MaxGust = &stats.MaxGust.Float64
	}
	writeJSON(w, http.StatusOK, resp)
}

type todayResponse struct {
	History  []models.WindSample `json:"history"`
	Forecast []forecastEntryView `json:"forecast"`
}

// handleToday stitches what already blew today together with what is still
// predicted for the rest of the local day. A forecast fetch failure degrades
// to history only; measured data is never held hostage to an upstream API.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	nextMidnight := midnight.AddDate(0, 0, 1)

	measurements, err := s.store.MeasurementsSince(midnight.UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := todayResponse{
		History:  make([]models.WindSample, 0, len(measurements)),
		Forecast: []forecastEntryView{},
	}
	for _, m := range measurements {
		resp.History = append(resp.History, models.NewWindSample(m))
	}

	if s.engine != nil {
		entries, err := s.engine.Forecast(r.Context())
		if err != nil {
			log.Printf("api: today forecast unavailable: %v", err)
		} else {
			for _, e := range entries {
				local := e.TargetTime.In(s.loc)
				if local.Before(now) || !local.Before(nextMidnight) {
					continue
				}
				resp.Forecast = append(resp.Forecast, newForecastEntryView(e))
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type gradientPoint struct {
	Hour        string  `json:"hour"`
	AvgSpeed    float64 `json:"avgSpeed"`
	MaxGust     float64 `json:"maxGust"`
	AvgDir      int     `json:"avgDir"`
	SampleCount int     `json:"sampleCount"`
}

func (s *Server) handleGradient(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 336)
	end := time.Now().UTC().Truncate(time.Hour)
	start := end.Add(-time.Duration(hours) * time.Hour)

	aggregates, err := s.store.HourlyAggregates(start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	points := make([]gradientPoint, 0, len(aggregates))
	for _, a := range aggregates {
		points = append(points, gradientPoint{
			Hour:        a.HourBucket.UTC().Format(time.RFC3339),
			AvgSpeed:    a.AvgSpeed,
			MaxGust:     a.MaxGust,
			AvgDir:      a.AvgDir,
			SampleCount: a.SampleCount,
		})
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 30)
	daily, err := s.store.DailyHistory(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

type forecastEntryView struct {
	TargetTime       string   `json:"targetTime"`
	Speed            float64  `json:"speed"`
	Gust             float64  `json:"gust"`
	Direction        int      `json:"direction"`
	PrecipProb       *int     `json:"precipProb,omitempty"`
	WaveHeight       *float64 `json:"waveHeight,omitempty"`
	WaveDirection    *float64 `json:"waveDirection,omitempty"`
	WavePeriod       *float64 `json:"wavePeriod,omitempty"`
	Corrected        bool     `json:"corrected"`
	CorrectionFactor float64  `json:"correctionFactorApplied"`
}

func newForecastEntryView(e models.ForecastEntry) forecastEntryView {
	v := forecastEntryView{
		TargetTime:       e.TargetTime.UTC().Format(time.RFC3339),
		Speed:            e.Speed,
		Gust:             e.Gust,
		Direction:        e.Direction,
		Corrected:        e.Corrected,
		CorrectionFactor: e.CorrectionFactor,
	}
	if e.PrecipProb.Valid {
		p := int(e.PrecipProb.Int64)
		v.PrecipProb = &p
	}
	if e.WaveHeight.Valid {
		v.WaveHeight = &e.WaveHeight.Float64
	}
	if e.WaveDirection.Valid {
		v.WaveDirection = &e.WaveDirection.Float64
	}
	if e.WavePeriod.Valid {
		v.WavePeriod = &e.WavePeriod.Float64
	}
	return v
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Forecast(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	views := make([]forecastEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newForecastEntryView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSpot(w http.ResponseWriter, r *http.Request) {
	offset, err := s.store.CalibrationOffset()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"lat":             s.cfg.SpotLat,
		"lon":             s.cfg.SpotLon,
		"timezone":        s.cfg.Timezone,
		"windowStartHour": s.cfg.WindowStartHour,
		"windowEndHour":   s.cfg.WindowEndHour,
		"calibration":     offset,
	}
	if m, err := s.store.LatestMeasurement(); err == nil && m != nil {
		resp["assessment"] = trend.Assess(m.WindSpeed, m.WindDir)
	}
	writeJSON(w, http.StatusOK, resp)
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		Auth   string `json:"auth"`
		P256dh string `json:"p256dh"`
	} `json:"keys"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription payload")
		return
	}
	if req.Endpoint == "" || req.Keys.Auth == "" || req.Keys.P256dh == "" {
		writeError(w, http.StatusBadRequest, "endpoint and keys required")
		return
	}

	err := s.store.UpsertSubscription(models.Subscription{
		Endpoint: req.Endpoint,
		Auth:     req.Keys.Auth,
		P256dh:   req.Keys.P256dh,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint required")
		return
	}

	if err := s.store.DeleteSubscription(req.Endpoint); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		offset, err := s.store.CalibrationOffset()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"offset": offset})

	case http.MethodPost:
		var req struct {
			Offset float64 `json:"offset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid calibration payload")
			return
		}
		if err := config.ValidateCalibration(req.Offset); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.store.SetCalibrationOffset(req.Offset); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"offset": req.Offset})

	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST required")
	}
}

type healthResponse struct {
	Status     string `json:"status"`
	LastSample string `json:"lastSample,omitempty"`
	AgeMinutes int    `json:"ageMinutes"`
	Stale      bool   `json:"stale"`
	Migration  int    `json:"migration"`
	Error      string `json:"error,omitempty"`
}

// handleHealth reports degraded when the newest measurement is older than
// the staleness threshold while inside the operating window. Outside the
// window no fresh data is expected.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	const staleThreshold = 15 * time.Minute

	version, err := s.store.MigrationVersion()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Error: err.Error()})
		return
	}

	resp := healthResponse{Status: "ok", Migration: version, AgeMinutes: -1}
	m, err := s.store.LatestMeasurement()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Error: err.Error()})
		return
	}

	now := time.Now()
	localHour := now.In(s.loc).Hour()
	inWindow := localHour >= s.cfg.WindowStartHour && localHour < s.cfg.WindowEndHour

	if m != nil {
		age := now.Sub(m.MeasuredAt)
		resp.LastSample = m.MeasuredAt.UTC().Format(time.RFC3339)
		resp.AgeMinutes = int(age.Minutes())
		resp.Stale = inWindow && age > staleThreshold
	} else {
		resp.Stale = inWindow
	}

	status := http.StatusOK
	if resp.Stale {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
