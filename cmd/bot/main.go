package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotbot/internal/audit"
	"slotbot/internal/bot"
	"slotbot/internal/config"
	"slotbot/internal/engine"
	"slotbot/internal/events"
	"slotbot/internal/google"
	"slotbot/internal/janitor"
	"slotbot/internal/metrics"
	"slotbot/internal/store"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SLOTBOT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	st, err := buildStore(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store error")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	eng := engine.New(st, bus, cfg.MaxBookingDuration(), &logger)
	dispatcher := bot.NewDispatcher(eng, cfg.Bot.Name, &logger)

	if cfg.Calendar.Enabled {
		mirror, err := google.NewCalendarMirror(ctx,
			cfg.Calendar.ClientID, cfg.Calendar.ClientSecret,
			cfg.Calendar.Account, cfg.Calendar.CalendarID, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("calendar mirror disabled")
		} else {
			mirror.Subscribe(bus)
			logger.Info().Str("calendar_id", cfg.Calendar.CalendarID).Msg("calendar mirror enabled")
		}
	}

	var exporter *audit.Exporter
	if cfg.Audit.Enabled {
		if err := os.MkdirAll(cfg.Audit.Path, 0o755); err != nil {
			logger.Fatal().Err(err).Msg("create audit dir error")
		}
		exporter = audit.NewExporter(st, audit.NewExcelizeWriter, &logger)
	}
	j := janitor.New(eng, st, exporter, cfg.JanitorSweepInterval(), cfg.Audit.DailyHour, cfg.Audit.Path, &logger)
	go j.Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, st, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	b, err := bot.NewTelegramBot(cfg.Telegram.BotToken, cfg.Telegram.Debug, dispatcher, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	logger.Info().Str("backend", cfg.Storage.Backend).Msg("booking bot started")
	b.Start(ctx)
}

func buildStore(cfg *config.Config, logger *zerolog.Logger) (store.Store, error) {
	newRedis := func() *store.RedisStore {
		return store.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		}))
	}

	switch cfg.Storage.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Storage.SQLite.Path)
	case "redis":
		if cfg.Storage.Redis.Address == "" {
			return nil, fmt.Errorf("storage.redis.address is required for redis backend")
		}
		return newRedis(), nil
	case "failover":
		if cfg.Storage.Redis.Address == "" {
			return nil, fmt.Errorf("storage.redis.address is required for failover backend")
		}
		fallback, err := store.NewSQLiteStore(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store.NewFailoverStore(newRedis(), fallback, logger), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func startHealthServer(ctx context.Context, port int, st store.Store, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := st.Ping(ctxPing); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
