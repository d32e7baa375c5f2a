package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/rs/zerolog"
)

// Окружения, в которых по умолчанию включается консольный вывод
// и уровень debug, если конфиг их не задал явно.
const (
	envDev   = "dev"
	envLocal = "local"
)

// New собирает базовый zerolog-логгер по настройкам конфига.
// Пустые поля означают JSON в stdout; в dev/local окружениях
// по умолчанию консольный формат и уровень debug.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	output, closer, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}

	if consoleFormat(cfg, app) {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(output).
		Level(resolveLevel(cfg, app)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &base, closer, nil
}

// Component возвращает дочерний логгер с полем component. По нему
// в выводе различаются HTTP-сервер, вебхук и фоновые подписчики.
func Component(base *zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func resolveLevel(cfg config.LoggingConfig, app config.AppConfig) zerolog.Level {
	raw := strings.ToLower(strings.TrimSpace(cfg.Level))
	if raw == "" {
		if devEnvironment(app) {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

func consoleFormat(cfg config.LoggingConfig, app config.AppConfig) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "console":
		return true
	case "":
		return devEnvironment(app)
	default:
		return false
	}
}

func devEnvironment(app config.AppConfig) bool {
	env := strings.ToLower(strings.TrimSpace(app.Environment))
	return env == envDev || env == envLocal
}
