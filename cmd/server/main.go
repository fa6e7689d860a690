package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridpulse/gridpulse/internal/alerts"
	"github.com/gridpulse/gridpulse/internal/api"
	"github.com/gridpulse/gridpulse/internal/baseline"
	"github.com/gridpulse/gridpulse/internal/config"
	"github.com/gridpulse/gridpulse/internal/events"
	"github.com/gridpulse/gridpulse/internal/ingest"
	"github.com/gridpulse/gridpulse/internal/live"
	"github.com/gridpulse/gridpulse/internal/metrics"
	"github.com/gridpulse/gridpulse/internal/score"
	"github.com/gridpulse/gridpulse/internal/spatial"
	"github.com/gridpulse/gridpulse/internal/track"
	"github.com/gridpulse/gridpulse/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("gridpulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"grid_level", cfg.Grid.Level,
		"live_backend", cfg.Live.Backend,
		"strategy", cfg.Baseline.Strategy,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Live aggregation store: Redis in production, in-process otherwise.
	var (
		liveStore   live.Store
		redisClient *redis.Client
		liveCheck   api.HealthChecker
	)
	switch cfg.Live.Backend {
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Live.RedisAddr,
			DB:   cfg.Live.RedisDB,
		})
		liveStore = live.NewRedisStore(redisClient)
		liveCheck = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	default:
		mem := live.NewMemoryStore()
		go mem.Run(ctx)
		liveStore = mem
	}
	agg := live.NewAggregator(liveStore)

	// Durable baseline store.
	db, err := baseline.Open(cfg.Baseline.DBPath)
	if err != nil {
		slog.Error("failed to open baseline database", "path", cfg.Baseline.DBPath, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// The active baseline strategy binds scoring and flushing to one
	// statistical representation.
	var strategy ingest.Strategy
	switch cfg.Baseline.Strategy {
	case config.StrategyPercentile:
		strategy = ingest.PercentileStrategy{
			Store:  db,
			Scorer: score.PercentileScorer{MinSamples: cfg.Baseline.MinSamples},
			Window: cfg.Baseline.HistoryWindow,
		}
	default:
		strategy = ingest.ZScoreStrategy{
			Store:  db,
			Scorer: score.ZScorer{MinSamples: cfg.Baseline.MinSamples},
			Alpha:  cfg.Baseline.Alpha,
		}
	}

	// Event fan-out: Redis stream, plus Kafka when brokers are configured.
	var pubs events.Multi
	if redisClient != nil {
		pubs = append(pubs, events.NewStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.MaxStreamLen))
	}
	if len(cfg.Events.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		if err != nil {
			slog.Error("failed to connect kafka producer",
				"brokers", cfg.Events.Kafka.Brokers, "err", err)
			os.Exit(1)
		}
		pubs = append(pubs, kp)
	}
	var pub events.Publisher = pubs
	if len(pubs) == 0 {
		pub = events.Nop{}
	}
	defer pub.Close()

	// Live cell registry with background TTL eviction.
	tracker := track.New(cfg.Server.Track.TTL)
	go tracker.Run(ctx)

	// Alerts engine — evaluates rules on every scored cell.
	alertEngine := alerts.New(cfg.Alerts)

	// Hot-reload alert rules on config file changes.
	go func() {
		if err := config.WatchAlertRules(ctx, *configPath, alertEngine.Reload); err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	svc := ingest.New(
		spatial.New(cfg.Grid.Level),
		agg,
		strategy,
		pub,
		tracker,
		alertEngine,
	)

	// WebSocket hub — broadcasts the cell map to dashboard clients.
	hub := ws.New(tracker, cfg.Server.WS.BroadcastInterval)
	go hub.Run(ctx)

	// Combined HTTP server: REST API + metrics + WebSocket hub on HTTPPort.
	restHandler := api.New(svc, tracker, alertEngine, liveCheck, db.Ping)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.WithAuth(restHandler, cfg.Server.Auth))
	httpMux.Handle("/metrics", metrics.Handler())
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("gridpulse-server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
