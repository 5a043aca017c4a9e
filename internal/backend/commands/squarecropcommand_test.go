package commands

import (
	"bytes"
	"image/png"
	"testing"
)

func TestSquareCropCommand_Execute(t *testing.T) {
	command, err := NewSquareCropCommand(nil)
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}

	result, err := command.Execute(makeSplitPNG(t, 40, 20))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(result))
	if err != nil {
		t.Fatalf("Result is not valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Fatalf("Expected 20x20, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// center crop of [0,40) is [10,30): left half red, right half blue
	r, _, b, _ := img.At(0, 10).RGBA()
	if r == 0 || b != 0 {
		t.Errorf("Expected red at left edge of crop")
	}
	r, _, b, _ = img.At(19, 10).RGBA()
	if r != 0 || b == 0 {
		t.Errorf("Expected blue at right edge of crop")
	}
}

func TestSquareCropCommand_AlreadySquare(t *testing.T) {
	command, _ := NewSquareCropCommand(nil)
	input := makeSplitPNG(t, 8, 8)
	result, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !bytes.Equal(result, input) {
		t.Error("Expected square input to pass through unchanged")
	}
}

func TestSquareCropCommand_Anchor(t *testing.T) {
	tests := []struct {
		name     string
		anchor   any
		wantBlue bool
	}{
		{name: "left edge", anchor: 0, wantBlue: false},
		{name: "right edge", anchor: 1.0, wantBlue: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewSquareCropCommand(map[string]any{"anchor": tt.anchor})
			if err != nil {
				t.Fatalf("Failed to create command: %v", err)
			}
			result, err := command.Execute(makeSplitPNG(t, 40, 20))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(result))
			if err != nil {
				t.Fatalf("Result is not valid PNG: %v", err)
			}
			// the whole crop lies in one half of the split image
			for _, x := range []int{0, 19} {
				_, _, b, _ := img.At(x, 10).RGBA()
				if (b != 0) != tt.wantBlue {
					t.Errorf("pixel %d: blue = %v, want %v", x, b != 0, tt.wantBlue)
				}
			}
		})
	}
}

func TestNewSquareCropCommand_InvalidAnchor(t *testing.T) {
	for _, v := range []any{-0.1, 1.5} {
		if _, err := NewSquareCropCommand(map[string]any{"anchor": v}); err == nil {
			t.Errorf("Expected error for anchor=%v", v)
		}
	}
}
