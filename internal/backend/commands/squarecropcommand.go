package commands

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
)

// DefaultCropAnchor keeps the crop window centered.
const DefaultCropAnchor = 0.5

// SquareCropParams represents typed parameters for the square crop command
type SquareCropParams struct {
	// Anchor positions the crop window along the longer edge: 0 keeps the
	// left or top, 1 the right or bottom.
	Anchor float64
}

func NewSquareCropParamsFromMap(params map[string]any) (*SquareCropParams, error) {
	anchor := commandstructure.GetFloatParam(params, "anchor", DefaultCropAnchor)
	if anchor < 0 || anchor > 1 {
		return nil, fmt.Errorf("anchor must be between 0 and 1, got %g", anchor)
	}
	return &SquareCropParams{Anchor: anchor}, nil
}

// SquareCropCommand crops an image to a square so it maps onto a cube face
// without distortion.
type SquareCropCommand struct {
	name   string
	params *SquareCropParams
}

func NewSquareCropCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewSquareCropParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &SquareCropCommand{name: "SquareCropCommand", params: typedParams}, nil
}

func (c *SquareCropCommand) Name() string {
	return c.name
}

func (c *SquareCropCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData)
	if err != nil {
		slog.Error("SquareCropCommand: failed to decode image", "error", err)
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == height {
		slog.Debug("SquareCropCommand: image already square", "size", width)
		return imageData, nil
	}

	side := width
	if height < side {
		side = height
	}
	x0 := bounds.Min.X + int(float64(width-side)*c.params.Anchor+0.5)
	y0 := bounds.Min.Y + int(float64(height-side)*c.params.Anchor+0.5)

	slog.Debug("SquareCropCommand: performing center crop",
		"original_width", width,
		"original_height", height,
		"crop_x", x0,
		"crop_y", y0,
		"side", side)

	cropped := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(cropped, cropped.Bounds(), img, image.Pt(x0, y0), draw.Src)

	out, err := encodePNG(cropped)
	if err != nil {
		slog.Error("SquareCropCommand: failed to encode cropped image", "error", err)
		return nil, fmt.Errorf("failed to encode cropped PNG image: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("SquareCropCommand", NewSquareCropCommand); err != nil {
		panic(fmt.Sprintf("failed to register SquareCropCommand: %v", err))
	}
}
