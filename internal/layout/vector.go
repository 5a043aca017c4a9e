package layout

import (
	"encoding/json"
	"math"
)

// Vector3 is a placement in world space.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// MarshalJSON encodes the vector as [x, y, z]. Non-finite components become
// null since JSON has no NaN.
func (v Vector3) MarshalJSON() ([]byte, error) {
	out := [3]*float64{}
	for i, c := range [3]float64{v.X, v.Y, v.Z} {
		if isFinite(c) {
			out[i] = &c
		}
	}
	return json.Marshal(out)
}

func (v *Vector3) UnmarshalJSON(data []byte) error {
	var in [3]*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	dst := [3]*float64{&v.X, &v.Y, &v.Z}
	for i, c := range in {
		if c == nil {
			*dst[i] = math.NaN()
		} else {
			*dst[i] = *c
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Box3 is an axis aligned bounding box.
type Box3 struct {
	Min Vector3
	Max Vector3
}

// IsEmpty reports whether the box contains no point.
func (b Box3) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Size returns the extent along each axis.
func (b Box3) Size() Vector3 {
	if b.IsEmpty() {
		return Vector3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Box3) Center() Vector3 {
	if b.IsEmpty() {
		return Vector3{}
	}
	return Vector3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

func (b *Box3) expand(p Vector3) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Bounds returns the bounding box of the finite points. Non-finite points
// are skipped; an empty result has Min > Max.
func Bounds(points []Vector3) Box3 {
	inf := math.Inf(1)
	b := Box3{
		Min: Vector3{X: inf, Y: inf, Z: inf},
		Max: Vector3{X: -inf, Y: -inf, Z: -inf},
	}
	for _, p := range points {
		if p.IsFinite() {
			b.expand(p)
		}
	}
	return b
}
