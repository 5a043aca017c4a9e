package commands

import (
	"bytes"
	"testing"

	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
)

func TestNewFitCommand_Defaults(t *testing.T) {
	command, err := NewFitCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	fitCmd, ok := command.(*FitCommand)
	if !ok {
		t.Fatal("Expected command to be *FitCommand")
	}
	if fitCmd.GetParams().MaxWidthOrHeight != DefaultMaxWidthOrHeight {
		t.Errorf("Expected default %d, got %d", DefaultMaxWidthOrHeight, fitCmd.GetParams().MaxWidthOrHeight)
	}
	if fitCmd.Name() != "FitCommand" {
		t.Errorf("Expected name 'FitCommand', got '%s'", fitCmd.Name())
	}
}

func TestNewFitCommand_Invalid(t *testing.T) {
	for _, v := range []any{0, -5} {
		if _, err := NewFitCommand(map[string]any{"maxWidthOrHeight": v}); err == nil {
			t.Errorf("Expected error for maxWidthOrHeight=%v", v)
		}
	}
}

func TestFitCommand_Execute(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		maxEdge        int
		expectedWidth  int
		expectedHeight int
		unchanged      bool
	}{
		{name: "landscape downsized", width: 200, height: 100, maxEdge: 50, expectedWidth: 50, expectedHeight: 25},
		{name: "portrait downsized", width: 90, height: 300, maxEdge: 100, expectedWidth: 30, expectedHeight: 100},
		{name: "already fits", width: 40, height: 20, maxEdge: 50, expectedWidth: 40, expectedHeight: 20, unchanged: true},
		{name: "never upscaled", width: 10, height: 10, maxEdge: 1280, expectedWidth: 10, expectedHeight: 10, unchanged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewFitCommand(map[string]any{"maxWidthOrHeight": tt.maxEdge})
			if err != nil {
				t.Fatalf("Failed to create command: %v", err)
			}
			input := makeSplitPNG(t, tt.width, tt.height)
			result, err := command.Execute(input)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if tt.unchanged && !bytes.Equal(result, input) {
				t.Error("Expected input bytes to be returned unchanged")
			}
			cfg, _ := decodeConfig(t, result)
			if cfg.Width != tt.expectedWidth || cfg.Height != tt.expectedHeight {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectedWidth, tt.expectedHeight, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestFitCommand_AcceptsJPEG(t *testing.T) {
	command, err := NewFitCommand(map[string]any{"maxWidthOrHeight": 16})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}
	result, err := command.Execute(makeJPEG(t, 64, 32))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	cfg, format := decodeConfig(t, result)
	if format != "png" || cfg.Width != 16 || cfg.Height != 8 {
		t.Errorf("Expected 16x8 png, got %dx%d %s", cfg.Width, cfg.Height, format)
	}
}

func TestFitCommand_InvalidImage(t *testing.T) {
	command, _ := NewFitCommand(map[string]any{})
	if _, err := command.Execute([]byte("not an image")); err == nil {
		t.Error("Expected error for invalid image data")
	}
}

func TestFitDimensions(t *testing.T) {
	w, h := fitDimensions(4000, 1, 1280, false)
	if w != 1280 || h != 1 {
		t.Errorf("Expected 1280x1 for extreme aspect ratio, got %dx%d", w, h)
	}
	if w, h := fitDimensions(10, 5, 20, false); w != 10 || h != 5 {
		t.Errorf("Expected 10x5 without upscale, got %dx%d", w, h)
	}
	if w, h := fitDimensions(10, 5, 20, true); w != 20 || h != 10 {
		t.Errorf("Expected 20x10 with upscale, got %dx%d", w, h)
	}
}

func TestFitCommand_AllowUpscale(t *testing.T) {
	for _, v := range []any{true, "TRUE"} {
		command, err := NewFitCommand(map[string]any{"maxWidthOrHeight": 32, "allowUpscale": v})
		if err != nil {
			t.Fatalf("Failed to create command: %v", err)
		}
		if !command.(*FitCommand).GetParams().AllowUpscale {
			t.Fatalf("Expected allowUpscale=%v to enable upscaling", v)
		}
		result, err := command.Execute(makeSplitPNG(t, 16, 8))
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		cfg, _ := decodeConfig(t, result)
		if cfg.Width != 32 || cfg.Height != 16 {
			t.Errorf("Expected 32x16, got %dx%d", cfg.Width, cfg.Height)
		}
	}
}

func TestCommandsRegisteredInDefaultRegistry(t *testing.T) {
	for _, name := range []string{"FitCommand", "SquareCropCommand", "JpegEncoderCommand", "PngConverterCommand"} {
		if !commandstructure.DefaultRegistry.IsRegistered(name) {
			t.Errorf("Expected %s to be registered in DefaultRegistry", name)
		}
	}
}
