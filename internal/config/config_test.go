package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
telegram:
  bot_token: "test_token"
  techsupport_bot_url: "https://t.me/support_bot"
database:
  path: "test.db"
verification:
  code_digits: 6
cities:
  - "Москва"
  - "Санкт-Петербург"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telegram.BotToken != "test_token" {
		t.Errorf("expected bot_token test_token, got %s", cfg.Telegram.BotToken)
	}

	if cfg.Verification.CodeDigits != 6 {
		t.Errorf("expected 6 code digits, got %d", cfg.Verification.CodeDigits)
	}

	if len(cfg.Cities) != 2 {
		t.Errorf("expected 2 cities, got %d", len(cfg.Cities))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
telegram:
  bot_token: "test_token"
database:
  path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Verification.CodeDigits != 4 {
		t.Errorf("expected default 4 code digits, got %d", cfg.Verification.CodeDigits)
	}
	if cfg.Verification.TTL() != 5*time.Minute {
		t.Errorf("expected default verification TTL 5m, got %s", cfg.Verification.TTL())
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Telegram:     TelegramConfig{BotToken: "token"},
				Database:     DatabaseConfig{Path: "path"},
				Verification: VerificationConfig{CodeDigits: 4},
				Cities:       []string{"Москва"},
			},
			wantErr: false,
		},
		{
			name: "missing token",
			cfg: Config{
				Telegram:     TelegramConfig{BotToken: ""},
				Database:     DatabaseConfig{Path: "path"},
				Verification: VerificationConfig{CodeDigits: 4},
			},
			wantErr: true,
		},
		{
			name: "zero code digits",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "duplicate city",
			cfg: Config{
				Telegram:     TelegramConfig{BotToken: "token"},
				Database:     DatabaseConfig{Path: "path"},
				Verification: VerificationConfig{CodeDigits: 4},
				Cities:       []string{"Москва", "Москва"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
