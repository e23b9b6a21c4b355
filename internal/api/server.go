package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jorikfon/JollyKite-sub001/internal/config"
	"github.com/jorikfon/JollyKite-sub001/internal/forecast"
	"github.com/jorikfon/JollyKite-sub001/internal/hub"
	"github.com/jorikfon/JollyKite-sub001/internal/store"
)

type Server struct {
	store  *store.Store
	engine *forecast.Engine
	hub    *hub.Hub
	cfg    *config.Config
	loc    *time.Location
}

func NewServer(s *store.Store, engine *forecast.Engine, h *hub.Hub, cfg *config.Config, loc *time.Location) *Server {
	return &Server{
		store:  s,
		engine: engine,
		hub:    h,
		cfg:    cfg,
		loc:    loc,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/wind/current", s.handleCurrent)
	mux.HandleFunc("/api/wind/trend", s.handleTrend)
	mux.HandleFunc("/api/wind/history", s.handleHistory)
	mux.HandleFunc("/api/wind/stats", s.handleStats)
	mux.HandleFunc("/api/wind/today", s.handleToday)
	mux.HandleFunc("/api/wind/gradient", s.handleGradient)
	mux.HandleFunc("/api/wind/daily", s.handleDaily)
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/spot", s.handleSpot)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/subscribe", s.handleSubscribe)
	mux.HandleFunc("/api/unsubscribe", s.handleUnsubscribe)
	mux.HandleFunc("/api/calibration", s.handleCalibration)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
