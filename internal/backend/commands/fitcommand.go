package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
	xdraw "golang.org/x/image/draw"
)

// DefaultMaxWidthOrHeight bounds the longest edge of stored face images.
const DefaultMaxWidthOrHeight = 1280

// FitParams represents typed parameters for the fit command
type FitParams struct {
	MaxWidthOrHeight int
	// AllowUpscale also enlarges images whose longest edge is shorter.
	AllowUpscale bool
}

// NewFitParamsFromMap creates FitParams from a generic map
func NewFitParamsFromMap(params map[string]any) (*FitParams, error) {
	maxEdge := commandstructure.GetIntParam(params, "maxWidthOrHeight", DefaultMaxWidthOrHeight)
	if maxEdge <= 0 {
		return nil, fmt.Errorf("maxWidthOrHeight must be positive, got %d", maxEdge)
	}
	return &FitParams{
		MaxWidthOrHeight: maxEdge,
		AllowUpscale:     commandstructure.GetBoolParam(params, "allowUpscale", false),
	}, nil
}

// FitCommand downsizes an image so its longest edge is at most MaxWidthOrHeight.
// Aspect ratio is preserved. Smaller images are enlarged only with AllowUpscale.
type FitCommand struct {
	name   string
	params *FitParams
}

// NewFitCommand creates a new fit command from configuration parameters
func NewFitCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewFitParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &FitCommand{
		name:   "FitCommand",
		params: typedParams,
	}, nil
}

func (c *FitCommand) Name() string {
	return c.name
}

func (c *FitCommand) GetParams() *FitParams {
	return c.params
}

// Execute returns the input unchanged when it already fits, otherwise a
// CatmullRom-resampled PNG.
func (c *FitCommand) Execute(imageData []byte) ([]byte, error) {
	img, format, err := decodeImage(imageData)
	if err != nil {
		slog.Error("FitCommand: failed to decode image", "error", err)
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scaledWidth, scaledHeight := fitDimensions(width, height, c.params.MaxWidthOrHeight, c.params.AllowUpscale)
	if scaledWidth == width && scaledHeight == height {
		slog.Debug("FitCommand: image already fits; skipping",
			"format", format,
			"width", width,
			"height", height)
		return imageData, nil
	}

	slog.Debug("FitCommand: resampling",
		"format", format,
		"original_width", width,
		"original_height", height,
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight)

	dst := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	out, err := encodePNG(dst)
	if err != nil {
		slog.Error("FitCommand: failed to encode image", "error", err)
		return nil, fmt.Errorf("failed to encode fitted PNG image: %w", err)
	}
	return out, nil
}

// fitDimensions scales (w, h) down so that max(w, h) <= maxEdge. With
// upscale, smaller sizes are scaled up to max(w, h) == maxEdge.
func fitDimensions(w, h, maxEdge int, upscale bool) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if longest == 0 || longest == maxEdge || (longest < maxEdge && !upscale) {
		return w, h
	}
	scale := float64(maxEdge) / float64(longest)
	sw := int(float64(w)*scale + 0.5)
	sh := int(float64(h)*scale + 0.5)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("FitCommand", NewFitCommand); err != nil {
		panic(fmt.Sprintf("failed to register FitCommand: %v", err))
	}
}
