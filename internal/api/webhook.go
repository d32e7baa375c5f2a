package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hardqode/losb-back/internal/events"
	"github.com/hardqode/losb-back/internal/metrics"
	"github.com/hardqode/losb-back/internal/models"
)

const headerSecretToken = "X-Telegram-Bot-Api-Secret-Token"

// webhookUpdate это минимальная проекция апдейта Telegram: нас интересуют
// только входящие сообщения.
type webhookUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
		Date int64  `json:"date"`
	} `json:"message"`
}

// handleWebhook принимает апдейты Telegram. Ответ всегда 200 со статусом
// ok: иначе Telegram начнет ретраить и отключит вебхук. Ошибки обработки
// гасятся в лог и метрики.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if secret := s.cfg.Telegram.WebhookSecret; secret != "" {
		got := r.Header.Get(headerSecretToken)
		if subtle.ConstantTimeCompare([]byte(secret), []byte(got)) != 1 {
			metrics.IncWebhook("forbidden")
			writeError(w, http.StatusForbidden, "invalid secret token")
			return
		}
	}

	var update webhookUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Warn().Err(err).Msg("malformed webhook payload")
		metrics.IncWebhook("malformed")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if update.Message == nil || update.Message.Chat.ID == 0 {
		metrics.IncWebhook("skipped")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	entry := &models.MessageLog{
		ChatID: update.Message.Chat.ID,
		Text:   update.Message.Text,
		SentAt: time.Unix(update.Message.Date, 0).UTC(),
	}
	if err := s.webhookRepo.UpsertMessageLog(r.Context(), entry); err != nil {
		s.logger.Error().Err(err).Int64("chat_id", entry.ChatID).Msg("failed to store message log")
		metrics.IncWebhook("error")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	metrics.IncWebhook("ok")
	_ = s.events.PublishJSON(events.EventMessageReceived, events.MessageReceivedPayload{
		ChatID: entry.ChatID,
		Text:   entry.Text,
		SentAt: entry.SentAt,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
