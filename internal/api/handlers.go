package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hardqode/losb-back/internal/models"
	"github.com/hardqode/losb-back/internal/service"
)

const maxAvatarSize = 5 << 20 // 5 MiB

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	cities, total, err := s.profiles.ListCities(r.Context(), query.Get("name"), limit, offset)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]cityJSON, 0, len(cities))
	for _, c := range cities {
		out = append(out, cityJSON{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": out, "total": total})
}

// handleGetUser возвращает профиль, создавая его при первом обращении.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := s.profiles.GetProfile(r.Context(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		user, err = s.profiles.EnsureUser(r.Context(), id, r.Header.Get("X-Telegram-Name"), r.Header.Get("X-Telegram-Username"))
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

func (s *Server) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.profiles.UpdateName(r.Context(), id, body.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

func (s *Server) handleUpdateCity(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		CityID int64 `json:"city_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.profiles.UpdateCity(r.Context(), id, body.CityID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

func (s *Server) handleSetBirthday(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		Bday string `json:"bday"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	bday, err := time.Parse("2006-01-02", body.Bday)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bday format; expected YYYY-MM-DD")
		return
	}

	user, err := s.profiles.SetBirthday(r.Context(), id, bday)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

// handleRequestPhoneVerification выдает SMS-код на кандидатный номер.
func (s *Server) handleRequestPhoneVerification(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body phoneJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	code, err := s.verifications.RequestVerification(r.Context(), id, models.Phone{Code: body.Code, Number: body.Number})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := map[string]string{"status": "ok"}
	if s.verifications.ExposeOTP() {
		resp["otp"] = code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyPhone(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		OTP   string    `json:"otp"`
		Phone phoneJSON `json:"phone"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.verifications.VerifyCode(r.Context(), id, body.OTP, models.Phone{Code: body.Phone.Code, Number: body.Phone.Number})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	user, err := s.profiles.SaveAvatar(r.Context(), id, header.Filename, file)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderUser(user))
}

func (s *Server) handleTechSupport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": s.profiles.TechSupportURL()})
}

// handleLastMessage отдает последнее сообщение пользователя и его аватар.
// Сбой получения аватара считается ошибкой целиком: частичный ответ бесполезен
// клиенту.
func (s *Server) handleLastMessage(w http.ResponseWriter, r *http.Request) {
	id, err := telegramID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	last, err := s.lastMessages.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := map[string]any{
		"message":    nil,
		"time":       nil,
		"avatar_url": last.AvatarURL,
	}
	if last.Entry != nil {
		resp["message"] = last.Entry.Text
		resp["time"] = last.Entry.SentAt.UTC().Format("15:04")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportUsers(w http.ResponseWriter, r *http.Request) {
	path, err := s.exports.ExportUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}
