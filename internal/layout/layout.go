// Package layout maps an entry's position in a list to a point in 3D space.
//
// Every layout is a closed-form function of (index, total). Nothing is
// remembered between calls, so placements may be computed in any order and
// from any number of goroutines.
package layout

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the placement formula used in gallery mode.
type Kind string

const (
	Sphere   Kind = "sphere"
	Helix    Kind = "helix"
	Wormhole Kind = "wormhole"
)

// torus-knot winding numbers of the wormhole path
const (
	knotP = 2
	knotQ = 3
)

const defaultTubeRadius = 4.0

// Kinds returns the recognised layout kinds in display order.
func Kinds() []Kind {
	return []Kind{Sphere, Helix, Wormhole}
}

// ParseKind converts a request value into a Kind.
// Matching is case-insensitive; unknown values return an error.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown layout kind: %q", s)
}

type SphereParams struct {
	RadiusMultiplier float64 `yaml:"radiusMultiplier" json:"radius_multiplier"`
}

type HelixParams struct {
	Radius          float64 `yaml:"radius" json:"radius"`
	YSpacing        float64 `yaml:"ySpacing" json:"y_spacing"`
	AngleMultiplier float64 `yaml:"angleMultiplier" json:"angle_multiplier"`
}

// WormholeParams configures the torus knot. ZSpacing doubles as the tube
// radius; zero selects the default of 4.
type WormholeParams struct {
	Radius   float64 `yaml:"radius" json:"radius"`
	ZSpacing float64 `yaml:"zSpacing" json:"z_spacing"`
}

// Params holds the tunable constants of all layouts.
type Params struct {
	Sphere   SphereParams   `yaml:"sphere" json:"sphere"`
	Helix    HelixParams    `yaml:"helix" json:"helix"`
	Wormhole WormholeParams `yaml:"wormhole" json:"wormhole"`
}

// DefaultParams returns the constants the gallery was tuned with.
func DefaultParams() Params {
	return Params{
		Sphere: SphereParams{RadiusMultiplier: 1.2},
		Helix: HelixParams{
			Radius:          10,
			YSpacing:        1.5,
			AngleMultiplier: 0.5,
		},
		Wormhole: WormholeParams{
			Radius:   11,
			ZSpacing: 3.5,
		},
	}
}

// TubeRadius returns the effective tube radius of the wormhole layout.
func (p WormholeParams) TubeRadius() float64 {
	if p.ZSpacing == 0 {
		return defaultTubeRadius
	}
	return p.ZSpacing
}

// Engine computes placements with a fixed set of parameters.
// The zero value is not usable; use NewEngine.
type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

var defaultEngine = NewEngine(DefaultParams())

// Position places entry index of total using the default parameters.
func Position(index, total int, kind Kind) Vector3 {
	return defaultEngine.Position(index, total, kind)
}

// Params returns the parameters the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// Position returns the placement of entry index in a list of total entries.
// total is clamped to at least 1. index may lie outside [0, total); the
// formulas are evaluated as-is. Unknown kinds place the entry at the origin.
func (e *Engine) Position(index, total int, kind Kind) Vector3 {
	n := float64(max(1, total))
	i := float64(index)

	switch kind {
	case Sphere:
		return e.sphere(i, n)
	case Helix:
		return e.helix(i, n)
	case Wormhole:
		return e.wormhole(i, n)
	default:
		return Vector3{}
	}
}

// SphereRadius is the radius of the sphere layout for total entries.
func (e *Engine) SphereRadius(total int) float64 {
	n := float64(max(1, total))
	return (10 + math.Log(n)*2) * e.params.Sphere.RadiusMultiplier
}

// sphere spreads points with the golden-angle spiral (Fibonacci sphere).
func (e *Engine) sphere(i, n float64) Vector3 {
	k := i + 0.5
	phi := math.Acos(1 - 2*k/n)
	theta := math.Pi * (1 + math.Sqrt(5)) * k
	r := (10 + math.Log(n)*2) * e.params.Sphere.RadiusMultiplier

	return Vector3{
		X: r * math.Cos(theta) * math.Sin(phi),
		Y: r * math.Sin(theta) * math.Sin(phi),
		Z: r * math.Cos(phi),
	}
}

// helix stacks points downwards around the y axis, centred on y=0.
func (e *Engine) helix(i, n float64) Vector3 {
	p := e.params.Helix
	yOffset := (n - 1) * p.YSpacing / 2
	angle := i * p.AngleMultiplier

	return Vector3{
		X: p.Radius * math.Cos(angle),
		Y: -(i * p.YSpacing) + yOffset,
		Z: p.Radius * math.Sin(angle),
	}
}

// wormhole walks a (2,3) torus knot once across the whole list.
func (e *Engine) wormhole(i, n float64) Vector3 {
	p := e.params.Wormhole
	tube := p.TubeRadius()
	t := i / n * 2 * math.Pi
	r := p.Radius + tube*math.Cos(knotQ*t)

	return Vector3{
		X: r * math.Cos(knotP*t),
		Y: r * math.Sin(knotP*t),
		Z: tube * math.Sin(knotQ*t),
	}
}

// Positions computes count consecutive placements starting at index 0 for a
// list of total entries. count may exceed total to place trailing
// placeholders. The work is spread over GOMAXPROCS goroutines.
func (e *Engine) Positions(total int, kind Kind, count int) []Vector3 {
	if count <= 0 {
		return nil
	}
	out := make([]Vector3, count)
	parallelFor(count, func(i int) {
		out[i] = e.Position(i, total, kind)
	})
	return out
}

// Validate reports parameters that would collapse a layout.
func (p Params) Validate() error {
	if p.Sphere.RadiusMultiplier <= 0 {
		return fmt.Errorf("sphere radiusMultiplier must be positive, got %v", p.Sphere.RadiusMultiplier)
	}
	if p.Helix.Radius <= 0 {
		return fmt.Errorf("helix radius must be positive, got %v", p.Helix.Radius)
	}
	if p.Helix.YSpacing <= 0 {
		return fmt.Errorf("helix ySpacing must be positive, got %v", p.Helix.YSpacing)
	}
	if p.Wormhole.Radius <= 0 {
		return fmt.Errorf("wormhole radius must be positive, got %v", p.Wormhole.Radius)
	}
	if p.Wormhole.ZSpacing < 0 {
		return fmt.Errorf("wormhole zSpacing must not be negative, got %v", p.Wormhole.ZSpacing)
	}
	return nil
}
