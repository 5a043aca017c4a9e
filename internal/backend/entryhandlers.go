package backend

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/jo-hoe/cubediary/internal/core"
	"github.com/jo-hoe/cubediary/internal/entry"
	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/labstack/echo/v4"
)

const (
	// maxFaceBytes bounds one uploaded face image.
	maxFaceBytes       = 20 << 20
	maxMultipartMemory = 32 << 20
	// maxEntryBody bounds a whole entry form: six faces plus form overhead.
	maxEntryBody       = "130M"
)

func faceField(i int) string {
	return fmt.Sprintf("face%d", i)
}

// readEntryForm collects content and faces from a multipart or urlencoded
// form. Fields that are absent stay nil.
func readEntryForm(ctx echo.Context) (core.EntryInput, error) {
	var (
		in     core.EntryInput
		values url.Values
		files  map[string][]*multipart.FileHeader
	)

	request := ctx.Request()
	if strings.HasPrefix(request.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return in, fmt.Errorf("%w: failed to parse multipart form: %v", core.ErrInvalidInput, err)
		}
		values = request.MultipartForm.Value
		files = request.MultipartForm.File
	} else {
		params, err := ctx.FormParams()
		if err != nil {
			return in, fmt.Errorf("%w: failed to parse form: %v", core.ErrInvalidInput, err)
		}
		values = params
	}

	if content, ok := values["content"]; ok && len(content) > 0 {
		in.Content = &content[0]
	}

	for i := range entry.FaceCount {
		name := faceField(i)
		if headers := files[name]; len(headers) > 0 {
			data, err := readFaceFile(headers[0])
			if err != nil {
				return in, fmt.Errorf("face %d: %w", i, err)
			}
			in.Faces[i] = &core.FaceInput{Data: data}
			continue
		}
		if refs := values[name]; len(refs) > 0 && strings.TrimSpace(refs[0]) != "" {
			in.Faces[i] = &core.FaceInput{Ref: strings.TrimSpace(refs[0])}
		}
	}
	return in, nil
}

func readFaceFile(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > maxFaceBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrInvalidInput, header.Filename, maxFaceBytes)
	}
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readFaceFile: failed to close uploaded file reader", "error", cerr, "filename", header.Filename)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(src, maxFaceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) > maxFaceBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrInvalidInput, header.Filename, maxFaceBytes)
	}
	return data, nil
}

func (service *APIService) listEntriesHandler(ctx echo.Context) error {
	entries, err := service.coreService.ListEntries(ctx.Request().Context(), callerOf(ctx))
	if err != nil {
		return writeError(ctx, "listEntriesHandler", err)
	}
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, entries)
}

func (service *APIService) getEntryHandler(ctx echo.Context) error {
	view, err := service.coreService.GetEntry(ctx.Request().Context(), callerOf(ctx), ctx.Param("id"))
	if err != nil {
		return writeError(ctx, "getEntryHandler", err)
	}
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, view)
}

func (service *APIService) createEntryHandler(ctx echo.Context) error {
	in, err := readEntryForm(ctx)
	if err != nil {
		return writeError(ctx, "createEntryHandler", err)
	}
	created, err := service.coreService.CreateEntry(ctx.Request().Context(), callerOf(ctx), in)
	if err != nil {
		return writeError(ctx, "createEntryHandler", err)
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (service *APIService) updateEntryHandler(ctx echo.Context) error {
	in, err := readEntryForm(ctx)
	if err != nil {
		return writeError(ctx, "updateEntryHandler", err)
	}
	updated, err := service.coreService.UpdateEntry(ctx.Request().Context(), callerOf(ctx), ctx.Param("id"), in)
	if err != nil {
		return writeError(ctx, "updateEntryHandler", err)
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (service *APIService) deleteEntryHandler(ctx echo.Context) error {
	if err := service.coreService.DeleteEntry(ctx.Request().Context(), callerOf(ctx), ctx.Param("id")); err != nil {
		return writeError(ctx, "deleteEntryHandler", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type galleryQuery struct {
	Layout       string `query:"layout"`
	Placeholders int    `query:"placeholders" validate:"min=0,max=1000"`
	Fill         string `query:"fill" validate:"omitempty,oneof=repeat color"`
	FillColor    string `query:"fill_color" validate:"omitempty,hexcolor"`
}

// galleryHandler answers GET /api/gallery. Placeholder positions are
// [null,null,null] for the sphere layout, which has no place for indices at
// or beyond the entry count; clients that want drawable placeholders ask for
// helix or wormhole.
func (service *APIService) galleryHandler(ctx echo.Context) error {
	var query galleryQuery
	if err := ctx.Bind(&query); err != nil {
		return err
	}
	if err := ctx.Validate(&query); err != nil {
		return err
	}

	kind := layout.Sphere
	if query.Layout != "" {
		parsed, err := layout.ParseKind(query.Layout)
		if err != nil {
			return badRequest(ctx, "galleryHandler", err.Error())
		}
		kind = parsed
	}

	gallery, err := service.coreService.Gallery(ctx.Request().Context(), callerOf(ctx), core.GalleryOptions{
		Kind:         kind,
		Placeholders: query.Placeholders,
		Fill:         entry.FillMode(query.Fill),
		FillColor:    query.FillColor,
	})
	if err != nil {
		return writeError(ctx, "galleryHandler", err)
	}
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, gallery)
}
