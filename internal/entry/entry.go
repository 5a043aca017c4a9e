// Package entry defines the diary entry and the cube faces it is drawn on.
package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// FaceCount is the number of faces on a cube.
const FaceCount = 6

var ErrInvalidFaceRef = errors.New("invalid face reference")

// Entry is one diary record.
type Entry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Content   string     `json:"content"`
	ImageURLs []string   `json:"image_urls"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Face names a cube side. The value is the material slot of the renderer.
type Face int

const (
	Right  Face = 0
	Left   Face = 1
	Top    Face = 2
	Bottom Face = 3
	Front  Face = 4
	Back   Face = 5
)

// FaceLayout places a face on the unfolded-cube editing grid.
type FaceLayout struct {
	Name string `json:"name"`
	Face Face   `json:"index"`
	Col  int    `json:"col"`
	Row  int    `json:"row"`
}

// Faces is the cross-shaped net used by the entry editor, row by row.
var Faces = []FaceLayout{
	{Name: "Top", Face: Top, Col: 2, Row: 1},
	{Name: "Left", Face: Left, Col: 1, Row: 2},
	{Name: "Front", Face: Front, Col: 2, Row: 2},
	{Name: "Right", Face: Right, Col: 3, Row: 2},
	{Name: "Back", Face: Back, Col: 4, Row: 2},
	{Name: "Bottom", Face: Bottom, Col: 2, Row: 3},
}

func (f Face) String() string {
	for _, l := range Faces {
		if l.Face == f {
			return l.Name
		}
	}
	return fmt.Sprintf("Face(%d)", int(f))
}

var colorMarker = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// IsColor reports whether ref is a solid colour marker such as "#336699".
func IsColor(ref string) bool {
	return colorMarker.MatchString(ref)
}

// ValidateFaceRef accepts an absolute http(s) URL or a colour marker.
func ValidateFaceRef(ref string) error {
	if IsColor(ref) {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFaceRef, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is neither an http(s) URL nor a #rrggbb colour", ErrInvalidFaceRef, ref)
	}
	return nil
}

// FillMode decides how missing faces are completed.
type FillMode string

const (
	FillRepeat FillMode = "repeat"
	FillColor  FillMode = "color"
)

// DefaultFillColor pads faces in FillColor mode when no colour is given.
const DefaultFillColor = "#666666"

// Fill returns exactly FaceCount references. Extra references are dropped.
// With FillRepeat the given references are cycled; with FillColor, or when
// there is nothing to repeat, the remaining faces get fillColor.
func Fill(refs []string, mode FillMode, fillColor string) []string {
	if fillColor == "" {
		fillColor = DefaultFillColor
	}
	out := make([]string, FaceCount)
	n := copy(out, refs)
	for i := n; i < FaceCount; i++ {
		if mode == FillRepeat && n > 0 {
			out[i] = refs[i%n]
		} else {
			out[i] = fillColor
		}
	}
	return out
}

// NormalizeImageURLs reads the face list of a stored row. A JSON array wins,
// then a single legacy URL, then a JSON string containing an array.
// Unreadable values yield an empty list.
func NormalizeImageURLs(raw string, legacyURL string) []string {
	raw = strings.TrimSpace(raw)

	var urls []string
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &urls); err == nil && urls != nil {
			return urls
		}
	}
	if legacyURL != "" {
		return []string{legacyURL}
	}
	if raw == "" {
		return []string{}
	}

	var nested string
	if err := json.Unmarshal([]byte(raw), &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &urls); err == nil && urls != nil {
			return urls
		}
	}
	return []string{}
}

// Reader is the read side of an entry source.
// Lookups of unknown ids return nil, nil.
type Reader interface {
	GetEntryByID(ctx context.Context, id string) (*Entry, error)
	GetEntriesByOwner(ctx context.Context, userID string) ([]*Entry, error)
}
