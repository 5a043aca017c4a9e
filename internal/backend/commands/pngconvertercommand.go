package commands

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// PngConverterCommand converts raster images and SVG documents to PNG.
type PngConverterCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewPngConverterCommand reads the optional svgFallbackWidth and
// svgFallbackHeight, used only when an SVG lacks explicit dimensions.
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 0)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 0)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("svg fallback size must not be negative, got %dx%d", w, h)
	}
	return NewPngConverterCommandWithFallback(w, h), nil
}

func NewPngConverterCommandWithFallback(width, height int) *PngConverterCommand {
	return &PngConverterCommand{
		name:              "PngConverterCommand",
		svgFallbackWidth:  width,
		svgFallbackHeight: height,
	}
}

func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if hasCorrectPngSignature(imageData) {
		slog.Debug("PngConverterCommand: PNG detected; returning original bytes")
		return imageData, nil
	}

	if w, h, ok := svgSize(imageData); ok {
		return c.convertSVG(imageData, w, h)
	}

	img, format, err := decodeImage(imageData)
	if err != nil {
		slog.Error("PngConverterCommand: failed to decode image", "error", err)
		return nil, err
	}
	out, err := encodePNG(img)
	if err != nil {
		slog.Error("PngConverterCommand: failed to encode image to PNG", "error", err)
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	slog.Debug("PngConverterCommand: raster conversion complete",
		"input_format", format,
		"output_size_bytes", len(out))
	return out, nil
}

func (c *PngConverterCommand) convertSVG(svgData []byte, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		w, h = c.svgFallbackWidth, c.svgFallbackHeight
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("SVG has no explicit size and no fallback size is configured")
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := createTargetCanvas(w, h, white)
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rendered SVG as PNG: %w", err)
	}
	slog.Debug("PngConverterCommand: SVG render complete",
		"width", w,
		"height", h,
		"output_size_bytes", len(out))
	return out, nil
}

// svgSize reports whether data is an SVG document and, if its root element
// carries them, its width and height in pixels (0 when absent).
func svgSize(data []byte) (int, int, bool) {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("<")) {
		return 0, 0, false
	}
	decoder := xml.NewDecoder(bytes.NewReader(trimmed))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return 0, 0, false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0, false
		}
		var w, h int
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				w = leadingPixels(attr.Value)
			case "height":
				h = leadingPixels(attr.Value)
			}
		}
		return w, h, true
	}
}

// leadingPixels parses values like "512", "512px" or "512.5". Relative
// units such as "100%" yield 0.
func leadingPixels(v string) int {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int(f + 0.5)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("PngConverterCommand", NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register PngConverterCommand: %v", err))
	}
}
