package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routerider/internal/api"
	"routerider/internal/bot"
	"routerider/internal/config"
	"routerider/internal/database"
	"routerider/internal/events"
	"routerider/internal/logging"
	"routerider/internal/metrics"
	"routerider/internal/repository"
	"routerider/internal/service"
	"routerider/internal/whatsapp"
	"routerider/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	notifier := whatsapp.NewClient(cfg.WhatsApp, &logger)

	eventBus := events.NewEventBus()
	subscribeMatchEvents(ctx, eventBus, notifier, &logger)

	userService := service.NewUserService(db, &logger)
	tripService := service.NewTripService(db, eventBus, &logger)
	rideService := service.NewRideService(db, eventBus, &logger)

	engine := bot.NewEngine(
		userService, tripService, rideService,
		stateService, cfg.Bot, bot.NewMetrics(), &logger,
	)

	apiServer := api.NewHTTPServer(cfg.API, cfg.WhatsApp, db, engine, notifier, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiServer.Shutdown(shutdownCtx)
	}()

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Run(ctx)
	}

	if cfg.Bot.RematchEnabled {
		interval := time.Duration(cfg.Bot.RematchInterval) * time.Second
		rematchWorker := worker.NewRematchWorker(rideService, db, notifier, interval, &logger)
		go rematchWorker.Run(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("version", cfg.App.Version).Msg("routerider bot started")
	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable, falling back to memory state")
		}
	}

	stateTTL := time.Duration(cfg.Bot.StateTTL) * time.Second
	primaryRepo := repository.NewRedisStateRepository(redisClient, stateTTL)
	fallbackRepo := repository.NewMemoryStateRepository(stateTTL)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

// subscribeMatchEvents pushes a chat notification to the driver whenever one
// of their trips gets matched to a ride request. The passenger is answered
// on their own turn; rematch-sweep matches notify both sides from the worker.
func subscribeMatchEvents(
	ctx context.Context,
	bus *events.EventBus,
	notifier *whatsapp.Client,
	logger *zerolog.Logger,
) {
	bus.Subscribe(events.EventRideMatched, func(ev *events.Event) error {
		var payload events.MatchEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		if payload.DriverPhone == "" {
			return nil
		}

		notifier.Notify(ctx, payload.DriverPhone,
			bot.DriverMatchNotification(payload.Origin, payload.Destination, payload.Seats))
		return nil
	})

	bus.Subscribe(events.EventTripPosted, func(ev *events.Event) error {
		var payload events.TripEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Int64("trip_id", payload.TripID).
			Str("route", payload.Origin+" - "+payload.Destination).
			Msg("trip posted")
		return nil
	})
}

func serveMetrics(port int, logger *zerolog.Logger) {
	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
