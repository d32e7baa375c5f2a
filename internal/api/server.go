package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server поднимает HTTP API платформы. Вебхук Telegram живет на том же порту,
// но проходит мимо API-key аутентификации: его защищает секрет вебхука.
type Server struct {
	cfg           *config.Config
	profiles      *service.ProfileService
	verifications *service.VerificationService
	lastMessages  *service.LastMessageService
	exports       *service.ExportService
	webhookRepo   domain.Repository
	events        domain.EventPublisher
	auth          *Auth
	logger        *zerolog.Logger
	server        *http.Server
}

func NewServer(
	cfg *config.Config,
	profiles *service.ProfileService,
	verifications *service.VerificationService,
	lastMessages *service.LastMessageService,
	exports *service.ExportService,
	repo domain.Repository,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		cfg:           cfg,
		profiles:      profiles,
		verifications: verifications,
		lastMessages:  lastMessages,
		exports:       exports,
		webhookRepo:   repo,
		events:        eventBus,
		auth:          NewAuth(cfg.API),
		logger:        logger,
	}

	router := mux.NewRouter()
	router.Use(s.requestIDMiddleware, s.loggingMiddleware, s.metricsMiddleware)

	// Вебхук: аутентификация своя, по секретному токену Telegram
	router.HandleFunc("/api/v1/webhook/telegram", s.handleWebhook).Methods(http.MethodPost)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(s.auth.Middleware)

	apiRouter.HandleFunc("/cities", s.handleListCities).Methods(http.MethodGet)
	apiRouter.HandleFunc("/user", s.handleGetUser).Methods(http.MethodGet)
	apiRouter.HandleFunc("/user/name", s.handleUpdateName).Methods(http.MethodPatch)
	apiRouter.HandleFunc("/user/city", s.handleUpdateCity).Methods(http.MethodPatch)
	apiRouter.HandleFunc("/user/bday", s.handleSetBirthday).Methods(http.MethodPost)
	apiRouter.HandleFunc("/user/phone", s.handleRequestPhoneVerification).Methods(http.MethodPost)
	apiRouter.HandleFunc("/user/phone", s.handleVerifyPhone).Methods(http.MethodPatch)
	apiRouter.HandleFunc("/user/avatar", s.handleUploadAvatar).Methods(http.MethodPost, http.MethodPatch)
	apiRouter.HandleFunc("/user/techsupport", s.handleTechSupport).Methods(http.MethodGet)
	apiRouter.HandleFunc("/user/last-message", s.handleLastMessage).Methods(http.MethodGet)
	apiRouter.HandleFunc("/admin/users/export", s.handleExportUsers).Methods(http.MethodGet)

	// Отдача загруженных аватаров
	if cfg.Media.BaseURL != "" && cfg.Media.Path != "" {
		prefix := cfg.Media.BaseURL + "/"
		router.PathPrefix(prefix).Handler(
			http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Media.Path))))
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler возвращает корневой обработчик, удобно для httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
