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
	"path/filepath"
	"syscall"
	"time"

	"github.com/hardqode/losb-back/internal/api"
	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/database"
	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/events"
	"github.com/hardqode/losb-back/internal/logging"
	"github.com/hardqode/losb-back/internal/metrics"
	"github.com/hardqode/losb-back/internal/repository"
	"github.com/hardqode/losb-back/internal/service"
	"github.com/hardqode/losb-back/internal/sms"
	"github.com/hardqode/losb-back/internal/telegram"

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
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "api-main")

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, store := initVerificationStore(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	eventBus := events.NewEventBus()
	subscribeEvents(eventBus, baseLogger)

	avatars, err := initAvatarClient(cfg, &logger)
	if err != nil {
		return err
	}

	smsClient := sms.NewClient(cfg.SMS, &logger)

	profiles := service.NewProfileService(db, eventBus, cfg, &logger)
	verifications := service.NewVerificationService(db, store, smsClient, eventBus, cfg.Verification, &logger)
	lastMessages := service.NewLastMessageService(db, avatars, &logger)
	exports := service.NewExportService(db, cfg, &logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	apiServer := api.NewServer(cfg, profiles, verifications, lastMessages, exports, db, eventBus, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	for _, dir := range []string{filepath.Dir(cfg.Database.Path), cfg.Media.Path, cfg.Exports.Path} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("Ошибка создания директории")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	if err := db.SeedCities(context.Background(), cfg.Cities); err != nil {
		logger.Error().Err(err).Msg("Ошибка загрузки справочника городов")
	}
	return db, nil
}

// initVerificationStore собирает хранилище заявок: Redis как основное,
// память как аварийный резерв.
func initVerificationStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.VerificationStore) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := cfg.Verification.TTL()
	primary := repository.NewRedisVerificationStore(redisClient, ttl)
	fallback := repository.NewMemoryVerificationStore(ttl)
	return redisClient, repository.NewFailoverVerificationStore(primary, fallback, logger)
}

func initAvatarClient(cfg *config.Config, logger *zerolog.Logger) (*telegram.AvatarClient, error) {
	botAPI, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return nil, err
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("Telegram bot authorized")
	return telegram.NewAvatarClient(botAPI, logger), nil
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

func subscribeEvents(bus *events.EventBus, baseLogger *zerolog.Logger) {
	busLogger := logging.Component(baseLogger, "event-bus")
	logger := &busLogger

	bus.Subscribe(events.EventPhoneVerified, func(ev *events.Event) error {
		var payload events.PhoneVerifiedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().Int64("telegram_id", payload.TelegramID).Msg("event bus: phone verified")
		return nil
	})

	bus.Subscribe(events.EventMessageReceived, func(ev *events.Event) error {
		var payload events.MessageReceivedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Debug().Int64("chat_id", payload.ChatID).Msg("event bus: message received")
		return nil
	})
}
