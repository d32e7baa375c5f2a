package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Verification VerificationConfig `yaml:"verification"`
	SMS          SMSConfig          `yaml:"sms"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Logging      LoggingConfig      `yaml:"logging"`
	API          APIConfig          `yaml:"api"`
	Media        MediaConfig        `yaml:"media"`
	Exports      ExportConfig       `yaml:"exports"`
	Cities       []string           `yaml:"cities"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken          string `yaml:"bot_token"`
	WebhookSecret     string `yaml:"webhook_secret"`
	TechSupportBotURL string `yaml:"techsupport_bot_url"`
	Debug             bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// VerificationConfig управляет выдачей SMS-кодов подтверждения телефона.
type VerificationConfig struct {
	CodeDigits     int  `yaml:"code_digits"`
	TTLSeconds     int  `yaml:"ttl_seconds"`
	DebugExposeOTP bool `yaml:"debug_expose_otp"`
}

// TTL возвращает срок жизни ожидающей верификации.
func (c VerificationConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type SMSConfig struct {
	ProviderURL string `yaml:"provider_url"`
	Login       string `yaml:"login"`
	Password    string `yaml:"password"`
	Sender      string `yaml:"sender"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MediaConfig struct {
	Path    string `yaml:"path"`
	BaseURL string `yaml:"base_url"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен, переменные могут прийти из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Verification.CodeDigits < 1 {
		return fmt.Errorf("verification code_digits must be positive, got %d", c.Verification.CodeDigits)
	}

	return ValidateCities(c.Cities)
}

func ValidateCities(cities []string) error {
	seen := make(map[string]bool)
	for _, name := range cities {
		if name == "" {
			return errors.New("city with empty name in config")
		}
		if seen[name] {
			return fmt.Errorf("duplicate city found: %s", name)
		}
		seen[name] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Verification.CodeDigits == 0 {
		c.Verification.CodeDigits = 4
	}
	if c.Verification.TTLSeconds == 0 {
		c.Verification.TTLSeconds = 300
	}

	if c.Media.Path == "" {
		c.Media.Path = "media"
	}
	if c.Media.BaseURL == "" {
		c.Media.BaseURL = "/media"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
