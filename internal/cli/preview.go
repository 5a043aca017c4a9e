package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/jo-hoe/cubediary/internal/preview"
	"github.com/spf13/cobra"
)

func newPreviewCmd(load configLoader) *cobra.Command {
	var (
		kindFlag  string
		planeFlag string
		total     int
		size      int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a 2D projection of a layout to SVG or PNG",
		Long:  "Render a 2D projection of a layout. The output format follows the file extension (.svg or .png).",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := layout.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			plane, err := preview.ParsePlane(planeFlag)
			if err != nil {
				return err
			}
			if total < 0 {
				return fmt.Errorf("total must not be negative, got %d", total)
			}

			var png bool
			switch ext := strings.ToLower(filepath.Ext(output)); ext {
			case ".svg":
			case ".png":
				png = true
			default:
				return fmt.Errorf("unsupported output extension %q, want .svg or .png", ext)
			}

			config, err := load(false)
			if err != nil {
				return err
			}
			engine := layout.NewEngine(config.Layout)
			points := engine.Positions(total, kind, max(total, 1))
			opts := preview.Options{Plane: plane, Size: size}

			render := preview.RenderSVG
			if png {
				render = preview.RenderPNG
			}
			data, err := render(points, opts)
			if err != nil {
				return fmt.Errorf("failed to render preview: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "layout", "l", string(layout.Sphere), "layout kind: sphere, helix or wormhole")
	cmd.Flags().StringVarP(&planeFlag, "plane", "p", string(preview.PlaneXY), "projection plane: xy, xz or zy")
	cmd.Flags().IntVarP(&total, "total", "n", 40, "number of entries")
	cmd.Flags().IntVarP(&size, "size", "s", preview.DefaultSize, "image edge length in pixels")
	cmd.Flags().StringVarP(&output, "output", "o", "layout.svg", "output file")
	return cmd
}
