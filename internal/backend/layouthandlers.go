package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/jo-hoe/cubediary/internal/preview"
	"github.com/jo-hoe/cubediary/internal/storage"
	"github.com/labstack/echo/v4"
)

const (
	mimePNG = "image/png"
	mimeSVG = "image/svg+xml"
)

type layoutsResponse struct {
	Kinds  []layout.Kind `json:"kinds"`
	Params layout.Params `json:"params"`
}

type positionsQuery struct {
	Total int `query:"total" validate:"min=0,max=100000"`
}

type previewQuery struct {
	Total int    `query:"total" validate:"min=0,max=100000"`
	Plane string `query:"plane" validate:"omitempty,oneof=xy xz zy"`
	Size  int    `query:"size" validate:"min=0,max=4096"`
}

func (service *APIService) listLayoutsHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, layoutsResponse{
		Kinds:  layout.Kinds(),
		Params: service.coreService.LayoutParams(),
	})
}

func (service *APIService) layoutPositionsHandler(ctx echo.Context) error {
	kind, err := layout.ParseKind(ctx.Param("kind"))
	if err != nil {
		return badRequest(ctx, "layoutPositionsHandler", err.Error())
	}
	var query positionsQuery
	if err := ctx.Bind(&query); err != nil {
		return err
	}
	if err := ctx.Validate(&query); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, service.coreService.Positions(kind, query.Total))
}

func (service *APIService) layoutPreviewHandler(png bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		kind, err := layout.ParseKind(ctx.Param("kind"))
		if err != nil {
			return badRequest(ctx, "layoutPreviewHandler", err.Error())
		}
		var query previewQuery
		if err := ctx.Bind(&query); err != nil {
			return err
		}
		if err := ctx.Validate(&query); err != nil {
			return err
		}
		plane, err := preview.ParsePlane(query.Plane)
		if err != nil {
			return badRequest(ctx, "layoutPreviewHandler", err.Error())
		}

		image, err := service.coreService.Preview(kind, query.Total, preview.Options{Plane: plane, Size: query.Size}, png)
		if err != nil {
			slog.Error("layoutPreviewHandler: failed to render preview",
				"status", http.StatusInternalServerError, "layout", kind, "error", err)
			return ctx.String(http.StatusInternalServerError, "Failed to render preview")
		}
		if png {
			return ctx.Blob(http.StatusOK, mimePNG, image)
		}
		return ctx.Blob(http.StatusOK, mimeSVG, image)
	}
}

// storageHandler serves uploaded face images. Object names are unique, so
// responses may be cached forever.
func (service *APIService) storageHandler(ctx echo.Context) error {
	store := service.coreService.Store()
	if ctx.Param("bucket") != store.Bucket() {
		return ctx.String(http.StatusNotFound, "Object not found")
	}
	path := ctx.Param("*")
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	object, err := store.Download(ctx.Request().Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			slog.Warn("storageHandler: object not available",
				"status", http.StatusNotFound, "path", path, "error", err)
			return ctx.String(http.StatusNotFound, "Object not found")
		}
		slog.Error("storageHandler: failed to read object",
			"status", http.StatusInternalServerError, "path", path, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to read object")
	}

	header := ctx.Response().Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cache-Control", "public, max-age=31536000, immutable")
	return ctx.Blob(http.StatusOK, object.ContentType, object.Data)
}
