package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/cubediary/internal/auth"
	"github.com/jo-hoe/cubediary/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (service *APIService) SetRoutes(e *echo.Echo) {
	// Probe and metrics
	e.GET("/probe", service.probeHandler)
	e.GET("/metrics", echo.WrapHandler(service.coreService.Metrics().Handler()))

	// Image relay and stored faces are public so textures load without credentials
	e.GET("/api/proxy", service.coreService.Relay().Handler)
	e.GET("/storage/:bucket/*", service.storageHandler)

	// Layout geometry does not depend on the caller
	e.GET("/api/layouts", service.listLayoutsHandler)
	e.GET("/api/layouts/:kind/positions", service.layoutPositionsHandler)
	e.GET("/api/layouts/:kind/preview.svg", service.layoutPreviewHandler(false))
	e.GET("/api/layouts/:kind/preview.png", service.layoutPreviewHandler(true))

	e.POST("/api/auth/signup", service.signUpHandler)
	e.POST("/api/auth/signin", service.signInHandler)
	e.POST("/api/auth/guest", service.guestSignInHandler)
	e.POST("/api/auth/signout", service.signOutHandler)

	session := e.Group("/api", service.requireSession)
	session.GET("/session", service.sessionHandler)
	session.GET("/session/events", service.sessionEventsHandler)

	entryBodyLimit := middleware.BodyLimit(maxEntryBody)
	session.GET("/entries", service.listEntriesHandler)
	session.POST("/entries", service.createEntryHandler, entryBodyLimit)
	session.GET("/entries/:id", service.getEntryHandler)
	session.PUT("/entries/:id", service.updateEntryHandler, entryBodyLimit)
	session.DELETE("/entries/:id", service.deleteEntryHandler)

	session.GET("/gallery", service.galleryHandler)
}

func (service *APIService) probeHandler(ctx echo.Context) error {
	if !service.coreService.Healthy() {
		slog.Error("probeHandler: database unavailable", "status", http.StatusServiceUnavailable)
		return ctx.String(http.StatusServiceUnavailable, "database unavailable")
	}
	return ctx.String(http.StatusOK, "ok")
}

// errorResponse is the JSON body of every failed API call.
type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps a domain error to the HTTP status it is reported with.
func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrGuestReadOnly):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err under handler and writes its status. Internal errors
// are not disclosed to the client.
func writeError(ctx echo.Context, handler string, err error) error {
	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
		message = http.StatusText(status)
	} else {
		slog.Warn(handler+": request rejected", "status", status, "error", err)
	}
	return ctx.JSON(status, errorResponse{Error: message})
}

func badRequest(ctx echo.Context, handler, message string) error {
	slog.Warn(handler+": bad request", "status", http.StatusBadRequest, "reason", message)
	return ctx.JSON(http.StatusBadRequest, errorResponse{Error: message})
}

// setNoCache prevents intermediaries from storing per-user responses.
func setNoCache(ctx echo.Context) {
	header := ctx.Response().Header()
	header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")
}
