// Package preview draws a 2D projection of a gallery layout.
package preview

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/jo-hoe/cubediary/internal/backend/commands"
	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/svg"
)

// Plane names the two axes a preview projects onto.
type Plane string

const (
	PlaneXY Plane = "xy"
	PlaneXZ Plane = "xz"
	PlaneZY Plane = "zy"
)

const (
	DefaultSize = 512
	MaxSize     = 4096
	margin      = 0.08
)

var (
	background  = canvas.Hex("#111318")
	transparent = color.RGBA{}
	pathColor   = color.RGBA{120, 128, 140, 160}
	newest      = color.RGBA{255, 196, 64, 255}
	oldest      = color.RGBA{64, 120, 255, 255}
)

func ParsePlane(s string) (Plane, error) {
	switch p := Plane(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PlaneXY, nil
	case PlaneXY, PlaneXZ, PlaneZY:
		return p, nil
	default:
		return "", fmt.Errorf("unknown projection plane %q", s)
	}
}

// Options control the rendered viewport.
type Options struct {
	Plane Plane
	Size  int
}

func (o Options) withDefaults() Options {
	if o.Plane == "" {
		o.Plane = PlaneXY
	}
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Size > MaxSize {
		o.Size = MaxSize
	}
	return o
}

func project(v layout.Vector3, plane Plane) (float64, float64) {
	switch plane {
	case PlaneXZ:
		return v.X, v.Z
	case PlaneZY:
		return v.Z, v.Y
	default:
		return v.X, v.Y
	}
}

// RenderSVG draws points, index 0 being the newest entry. Non-finite
// points are skipped.
func RenderSVG(points []layout.Vector3, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	size := float64(opts.Size)

	c := canvas.New(size, size)
	ctx := canvas.NewContext(c)

	ctx.SetFillColor(background)
	ctx.SetStrokeColor(transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(size, size))

	// projected points on the XY plane, with their index in points
	flat := make([]layout.Vector3, 0, len(points))
	idx := make([]int, 0, len(points))
	for i, p := range points {
		if !p.IsFinite() {
			continue
		}
		a, b := project(p, opts.Plane)
		flat = append(flat, layout.Vector3{X: a, Y: b})
		idx = append(idx, i)
	}

	if len(flat) > 0 {
		toView := fit(flat, size)

		if len(flat) > 1 {
			path := &canvas.Path{}
			path.MoveTo(toView(flat[0]))
			for _, p := range flat[1:] {
				path.LineTo(toView(p))
			}
			ctx.SetFillColor(transparent)
			ctx.SetStrokeColor(pathColor)
			ctx.SetStrokeWidth(math.Max(size/512, 0.5))
			ctx.DrawPath(0, 0, path)
		}

		radius := dotRadius(size, len(points))
		ctx.SetStrokeColor(transparent)
		for i, p := range flat {
			x, y := toView(p)
			ctx.SetFillColor(gradient(idx[i], len(points)))
			ctx.DrawPath(x, y, canvas.Circle(radius))
		}
	}

	var buf bytes.Buffer
	renderer := svg.New(&buf, size, size, nil)
	c.RenderTo(renderer)
	if err := renderer.Close(); err != nil {
		return nil, fmt.Errorf("failed to write svg: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPNG rasterises the SVG preview at Size x Size pixels.
func RenderPNG(points []layout.Vector3, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	data, err := RenderSVG(points, opts)
	if err != nil {
		return nil, err
	}
	out, err := commands.NewPngConverterCommandWithFallback(opts.Size, opts.Size).Execute(data)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterise preview: %w", err)
	}
	return out, nil
}

// fit maps projected points into the viewport, preserving aspect ratio and
// centring their bounding box.
func fit(points []layout.Vector3, size float64) func(p layout.Vector3) (float64, float64) {
	box := layout.Bounds(points)
	extent := box.Size()
	center := box.Center()
	usable := size * (1 - 2*margin)
	scale := 1.0
	if longest := math.Max(extent.X, extent.Y); longest > 0 {
		scale = usable / longest
	}
	return func(p layout.Vector3) (float64, float64) {
		return size/2 + (p.X-center.X)*scale, size/2 + (p.Y-center.Y)*scale
	}
}

func dotRadius(size float64, n int) float64 {
	r := size / (4 * math.Sqrt(float64(max(n, 1))+16))
	return math.Max(r, 1)
}

// gradient colours index i of n from newest to oldest.
func gradient(i, n int) color.RGBA {
	t := 0.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-t) + float64(b)*t + 0.5)
	}
	return color.RGBA{
		R: lerp(newest.R, oldest.R),
		G: lerp(newest.G, oldest.G),
		B: lerp(newest.B, oldest.B),
		A: 255,
	}
}
