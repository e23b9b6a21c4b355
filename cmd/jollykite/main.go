package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/jorikfon/JollyKite-sub001/internal/api"
	"github.com/jorikfon/JollyKite-sub001/internal/config"
	"github.com/jorikfon/JollyKite-sub001/internal/forecast"
	"github.com/jorikfon/JollyKite-sub001/internal/hub"
	"github.com/jorikfon/JollyKite-sub001/internal/ingest"
	"github.com/jorikfon/JollyKite-sub001/internal/notify"
	"github.com/jorikfon/JollyKite-sub001/internal/station"
	"github.com/jorikfon/JollyKite-sub001/internal/store"
)

func main() {
	var cfg config.Config
	kctx := kong.Parse(&cfg,
		kong.Name("jollykite"),
		kong.Description("Wind telemetry backend for the Dolzhanskaya kite spot."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := cfg.Validate(); err != nil {
		kctx.FatalIfErrorf(err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("main: could not load timezone %s, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	st, err := store.Open(cfg.DBPath, loc)
	if err != nil {
		log.Fatalf("main: open store: %v", err)
	}
	defer st.Close()
	log.Println("main: database migrated")

	aggregator := station.NewAggregator(st, stationProviders(&cfg)...)

	windClient := forecast.NewOpenMeteoClient(cfg.SpotLat, cfg.SpotLon, cfg.ForecastDays, cfg.ForecastTimeout)
	marineClient := forecast.NewMarineClient(cfg.SpotLat, cfg.SpotLon, cfg.ForecastDays, cfg.ForecastTimeout)
	engine := forecast.NewEngine(windClient, marineClient, st, loc, cfg.WindowStartHour, cfg.WindowEndHour)
	evaluator := forecast.NewEvaluator(st, engine)

	broadcastHub := hub.New()

	var gate *notify.Gate
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		sender := notify.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
		gate = notify.NewGate(st, sender, loc, cfg.NotifyMinSpeed, cfg.NotifyWindow)
	} else {
		log.Println("main: VAPID keys not set, push notifications disabled")
	}

	scheduler := ingest.NewScheduler(&cfg, st, aggregator, evaluator, broadcastHub, gate, loc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Once {
		if err := scheduler.CollectOnce(ctx); err != nil {
			log.Fatalf("main: collection cycle: %v", err)
		}
		log.Println("main: done")
		return
	}

	if cfg.Evaluate {
		if err := evaluator.Evaluate(time.Now()); err != nil {
			log.Fatalf("main: accuracy evaluation: %v", err)
		}
		log.Println("main: done")
		return
	}

	if !cfg.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("main: polling disabled")
	}

	server := api.NewServer(st, engine, broadcastHub, &cfg, loc)
	log.Printf("main: listening on :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("main: server: %v", err)
	}
}

// stationProviders builds the failover chain from whatever endpoints are
// configured. Priority follows declaration order: WeatherLink first, then
// Holfuy, with the met-service FTP feed as the last resort.
func stationProviders(cfg *config.Config) []station.Provider {
	var providers []station.Provider
	if cfg.WeatherLinkURL != "" {
		providers = append(providers, station.NewWeatherLink("weatherlink", cfg.WeatherLinkURL, 1))
	}
	if cfg.HolfuyURL != "" {
		providers = append(providers, station.NewHolfuy("holfuy", cfg.HolfuyURL, 2))
	}
	if cfg.MetFeedHost != "" && cfg.MetFeedPath != "" {
		providers = append(providers, station.NewMetFeed("metfeed", cfg.MetFeedHost, cfg.MetFeedPath, "35019", 3))
	}
	if len(providers) == 0 {
		log.Fatal("main: no station endpoints configured")
	}
	return providers
}
