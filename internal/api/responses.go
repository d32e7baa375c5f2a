package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hardqode/losb-back/internal/models"
	"github.com/hardqode/losb-back/internal/service"
	"github.com/hardqode/losb-back/internal/sms"
)

// HeaderTelegramID несет идентификатор пользователя, проставленный
// шлюзом после проверки Telegram-аутентификации.
const HeaderTelegramID = "X-Telegram-ID"

type phoneJSON struct {
	Code   int   `json:"code"`
	Number int64 `json:"number"`
}

type cityJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userJSON struct {
	TelegramID int64      `json:"telegram_id"`
	Name       string     `json:"name"`
	Nickname   string     `json:"nickname"`
	Avatar     string     `json:"avatar"`
	Bday       *string    `json:"bday"`
	City       *cityJSON  `json:"city"`
	Phone      *phoneJSON `json:"phone"`
}

func renderUser(u *models.User) userJSON {
	out := userJSON{
		TelegramID: u.TelegramID,
		Name:       u.Name,
		Nickname:   u.Nickname,
		Avatar:     u.AvatarURL,
	}
	if u.Birthday.Valid {
		bday := u.Birthday.Time.Format("2006-01-02")
		out.Bday = &bday
	}
	if u.CityID.Valid {
		out.City = &cityJSON{ID: u.CityID.Int64, Name: u.CityName}
	}
	if u.Phone != nil {
		out.Phone = &phoneJSON{Code: u.Phone.Code, Number: u.Phone.Number}
	}
	return out
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError переводит ошибки сервисного слоя в HTTP-статусы.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var deliveryErr *sms.DeliveryError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &deliveryErr):
		writeError(w, http.StatusBadRequest, deliveryErr.Error())
	case errors.Is(err, service.ErrNoPendingVerification),
		errors.Is(err, service.ErrCodeMismatch),
		errors.Is(err, service.ErrBirthdayAlreadyRegistered),
		errors.Is(err, service.ErrCityNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func telegramID(r *http.Request) (int64, error) {
	raw := r.Header.Get(HeaderTelegramID)
	if raw == "" {
		return 0, errors.New("missing X-Telegram-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid X-Telegram-ID header")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
