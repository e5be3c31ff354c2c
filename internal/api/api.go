// Package api exposes the registry and classification pipeline over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/gate"
	"github.com/muzzleid/muzzle-go/internal/imaging"
	"github.com/muzzleid/muzzle-go/internal/logging"
	"github.com/muzzleid/muzzle-go/internal/reference"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo       *echo.Echo
	Group      *echo.Group
	DS         registry.Interface
	Settings   *conf.Settings
	Codec      *imaging.Codec
	References *reference.Provider
	Gate       *gate.Gate

	classifyCache *cache.Cache
	apiLogger     *slog.Logger
}

// New creates the API controller and registers its routes under /api/v1.
func New(e *echo.Echo, ds registry.Interface, settings *conf.Settings,
	codec *imaging.Codec, refs *reference.Provider) *Controller {

	c := &Controller{
		Echo:          e,
		DS:            ds,
		Settings:      settings,
		Codec:         codec,
		References:    refs,
		Gate:          gate.New(ds, refs),
		classifyCache: cache.New(30*time.Second, time.Minute),
		apiLogger:     logging.ForService("api"),
	}

	e.Use(middleware.Recover())

	c.Group = e.Group("/api/v1")
	c.initSubjectRoutes()
	c.initClassifyRoutes()
	c.initExportRoutes()
	c.initReferenceRoutes()
	c.Group.GET("/health", c.HandleHealth)

	return c
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError maps an error onto the taxonomy derived HTTP status and logs
// it with a correlation id.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := statusForError(err)
	resp := &ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}

	c.apiLogger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", err.Error(),
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, resp)
}

// statusForError maps error categories to HTTP status codes so callers can
// distinguish "fix your input" from "try again later".
func statusForError(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryImageProcessing):
		return http.StatusUnsupportedMediaType
	case errors.IsCategory(err, errors.CategoryTimeout),
		errors.IsCategory(err, errors.CategoryDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleHealth reports liveness.
func (c *Controller) HandleHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"reference_rows": c.References.Table().Len(),
	})
}
