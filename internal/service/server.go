package service

import (
	"uplift/internal/app"
	"uplift/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// Service encapsulates the local gateway configuration: the engine facade
// behind it, the HTTP handlers, the listen address, and a logger.
// The gateway is what the UI layer talks to; it binds to loopback.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
// It sets up the handlers using the provided application and logger,
// and configures the gateway's run address.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter sets up and returns a new chi.Router with the gateway routes.
// Logging middleware applies globally; there is no auth middleware here,
// the remote service authenticates the session token on every call.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())
	router.Post("/api/login", service.handlers.loginHandler)
	router.Post("/api/logout", service.handlers.logoutHandler)
	router.Get("/api/balance", service.handlers.balanceHandler)
	router.Get("/api/checkin", service.handlers.checkinInfoHandler)
	router.Post("/api/checkin", service.handlers.performCheckinHandler)
	router.Get("/api/daily/{category}", service.handlers.dailyHandler)
	router.Post("/api/daily/{category}/{id}/unlock", service.handlers.unlockHandler)
	router.Post("/api/daily/{category}/{id}/vote", service.handlers.voteHandler)
	router.Post("/api/content/submit", service.handlers.submitHandler)
	router.Get("/api/my-content", service.handlers.myContentHandler)
	router.Delete("/api/my-content/{id}", service.handlers.removeMyContentHandler)
	router.Get("/api/points/history", service.handlers.historyHandler)
	router.Post("/api/password", service.handlers.passwordHandler)
	return router
}
