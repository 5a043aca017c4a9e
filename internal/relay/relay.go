// Package relay serves remote images through this origin so that browsers
// can use them as WebGL textures without cross-origin restrictions.
package relay

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	DefaultContentType = "image/jpeg"
	cacheControl       = "public, max-age=31536000, immutable"
)

// Outcome labels one relay request for metrics.
type Outcome string

const (
	OutcomeFetched     Outcome = "fetched"
	OutcomeCached      Outcome = "cached"
	OutcomeBadRequest  Outcome = "bad_request"
	OutcomeUpstream    Outcome = "upstream_error"
	OutcomeInternalErr Outcome = "internal_error"
)

// Recorder observes relay outcomes.
type Recorder interface {
	RecordRelay(outcome Outcome)
}

type Relay struct {
	fetcher  *Fetcher
	cache    Cache
	recorder Recorder
}

// NewRelay wires a fetcher with an optional cache and recorder.
func NewRelay(fetcher *Fetcher, cache Cache, recorder Recorder) *Relay {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Relay{fetcher: fetcher, cache: cache, recorder: recorder}
}

func (r *Relay) record(o Outcome) {
	if r.recorder != nil {
		r.recorder.RecordRelay(o)
	}
}

// Handler serves GET ?url=<remote>.
func (r *Relay) Handler(ctx echo.Context) error {
	target := ctx.QueryParam("url")
	if target == "" {
		r.record(OutcomeBadRequest)
		return ctx.String(http.StatusBadRequest, "URL parameter is required")
	}

	reqCtx := ctx.Request().Context()

	cached, err := r.cache.Get(reqCtx, target)
	if err != nil {
		slog.Warn("relayHandler: cache lookup failed", "error", err)
	}
	if cached != nil {
		r.record(OutcomeCached)
		return writeImage(ctx, cached)
	}

	result, err := r.fetcher.Fetch(reqCtx, target)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			slog.Info("relayHandler: upstream refused", "status", statusErr.StatusCode)
			r.record(OutcomeUpstream)
			return ctx.String(statusErr.StatusCode, "Failed to fetch image")
		}
		slog.Error("relayHandler: failed to relay image", "error", err)
		r.record(OutcomeInternalErr)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	if err := r.cache.Set(reqCtx, target, result); err != nil {
		slog.Warn("relayHandler: cache store failed", "error", err)
	}
	r.record(OutcomeFetched)
	return writeImage(ctx, result)
}

func writeImage(ctx echo.Context, result *Result) error {
	contentType := result.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	header := ctx.Response().Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cache-Control", cacheControl)
	return ctx.Blob(http.StatusOK, contentType, result.Body)
}
