package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jollykite_collections_total",
			Help: "Total collection cycles by outcome",
		},
		[]string{"station", "status"},
	)

	StationFailoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jollykite_station_failovers_total",
			Help: "Station fetches that fell through to a lower-priority station",
		},
		[]string{"station"},
	)

	ForecastFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jollykite_forecast_fetches_total",
			Help: "External forecast API calls",
		},
		[]string{"api", "status"},
	)

	BroadcastEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jollykite_broadcast_events_total",
			Help: "Events fanned out to stream subscribers",
		},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jollykite_stream_subscribers",
			Help: "Currently connected stream subscribers",
		},
	)

	NotificationsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jollykite_notifications_sent_total",
			Help: "Push notifications dispatched",
		},
	)
)
