package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/jo-hoe/cubediary/internal/layout"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug message written at info level: %q", buf.String())
	}
	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("info message missing: %q", buf.String())
	}
}

func TestPositionsJSON(t *testing.T) {
	out, err := run(t, "positions", "--layout", "helix", "--total", "5", "--format", "json")
	if err != nil {
		t.Fatalf("positions error: %v", err)
	}
	var points []layout.Vector3
	if err := json.Unmarshal([]byte(out), &points); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	if len(points) != 5 {
		t.Fatalf("expected 5 positions, got %d", len(points))
	}
	for i, p := range points {
		if want := layout.Position(i, 5, layout.Helix); p != want {
			t.Errorf("position %d = %v, want %v", i, p, want)
		}
	}
}

func TestPositionsTable(t *testing.T) {
	out, err := run(t, "positions", "-l", "wormhole", "-n", "3")
	if err != nil {
		t.Fatalf("positions error: %v", err)
	}
	for _, header := range []string{"index", "x", "y", "z"} {
		if !strings.Contains(out, header) {
			t.Errorf("missing header %q:\n%s", header, out)
		}
	}
	if !strings.Contains(out, "╭") || !strings.Contains(out, "╯") {
		t.Errorf("expected a rounded border:\n%s", out)
	}
	for i := 0; i < 3; i++ {
		p := layout.Position(i, 3, layout.Wormhole)
		for _, v := range []float64{p.X, p.Y, p.Z} {
			cell := strconv.FormatFloat(v, 'f', 4, 64)
			if !strings.Contains(out, cell) {
				t.Errorf("row %d missing value %s:\n%s", i, cell, out)
			}
		}
	}
}

func TestPositionsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown layout", []string{"positions", "--layout", "cylinder"}},
		{"negative total", []string{"positions", "--total", "-1"}},
		{"unknown format", []string{"positions", "--format", "xml"}},
		{"missing explicit config", []string{"positions", "--config", filepath.Join(t.TempDir(), "missing.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPositionsUsesConfiguredLayout(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := "layout:\n  helix:\n    radius: 50\n    ySpacing: 1\n    angleMultiplier: 0.5\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := run(t, "positions", "-c", configPath, "-l", "helix", "-n", "1", "-f", "json")
	if err != nil {
		t.Fatalf("positions error: %v", err)
	}
	var points []layout.Vector3
	if err := json.Unmarshal([]byte(out), &points); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if len(points) != 1 || points[0].X != 50 {
		t.Fatalf("expected configured helix radius, got %v", points)
	}
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()

	svgPath := filepath.Join(dir, "sphere.svg")
	if _, err := run(t, "preview", "-l", "sphere", "-n", "20", "-s", "128", "-o", svgPath); err != nil {
		t.Fatalf("preview svg error: %v", err)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("expected svg document")
	}

	pngPath := filepath.Join(dir, "helix.png")
	if _, err := run(t, "preview", "-l", "helix", "-p", "xz", "-s", "64", "-o", pngPath); err != nil {
		t.Fatalf("preview png error: %v", err)
	}
	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("invalid png: %v", err)
	}

	if _, err := run(t, "preview", "-o", filepath.Join(dir, "out.gif")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := run(t, "preview", "-p", "yx", "-o", svgPath); err == nil {
		t.Error("expected error for unknown plane")
	}
}
