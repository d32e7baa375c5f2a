// Package sms отправляет сообщения через HTTP-шлюз SMS-провайдера.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hardqode/losb-back/internal/config"

	"github.com/rs/zerolog"
)

// DeliveryError возвращается при любом сбое доставки: сеть, отказ провайдера,
// некорректный номер. Cause показывается пользователю.
type DeliveryError struct {
	Cause string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sms delivery failed: %s", e.Cause)
}

// Client ходит в HTTP API провайдера. Одна попытка на отправку,
// без внутренних ретраев.
type Client struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	logger     *zerolog.Logger
}

type providerResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewClient(cfg config.SMSConfig, logger *zerolog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send выполняет form POST на шлюз провайдера.
func (c *Client) Send(ctx context.Context, phone string, text string) error {
	params := url.Values{}
	params.Set("login", c.cfg.Login)
	params.Set("password", c.cfg.Password)
	params.Set("sender", c.cfg.Sender)
	params.Set("phone", phone)
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProviderURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return &DeliveryError{Cause: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("phone", phone).Msg("SMS gateway request failed")
		return &DeliveryError{Cause: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return &DeliveryError{Cause: fmt.Sprintf("failed to read gateway response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("phone", phone).Msg("SMS gateway rejected message")
		return &DeliveryError{Cause: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &DeliveryError{Cause: fmt.Sprintf("unexpected gateway response: %v", err)}
	}
	if parsed.Status != "ok" {
		cause := parsed.Error
		if cause == "" {
			cause = fmt.Sprintf("gateway status %q", parsed.Status)
		}
		return &DeliveryError{Cause: cause}
	}

	c.logger.Debug().Str("phone", phone).Msg("SMS accepted by gateway")
	return nil
}
