package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/spf13/cobra"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var (
	colorGray = lipgloss.Color("245")
	colorDim  = lipgloss.Color("240")

	headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

func newPositionsCmd(load configLoader) *cobra.Command {
	var (
		kindFlag string
		total    int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Print the placement of every entry of a list",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := layout.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			if total < 0 {
				return fmt.Errorf("total must not be negative, got %d", total)
			}
			config, err := load(false)
			if err != nil {
				return err
			}

			engine := layout.NewEngine(config.Layout)
			points := engine.Positions(total, kind, total)
			switch format {
			case formatJSON:
				return writePositionsJSON(cmd.OutOrStdout(), points)
			case formatTable:
				return writePositionsTable(cmd.OutOrStdout(), points)
			default:
				return fmt.Errorf("unknown format %q, want %s or %s", format, formatJSON, formatTable)
			}
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "layout", "l", string(layout.Sphere), "layout kind: sphere, helix or wormhole")
	cmd.Flags().IntVarP(&total, "total", "n", 10, "number of entries")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")
	return cmd
}

func writePositionsJSON(w io.Writer, points []layout.Vector3) error {
	if points == nil {
		points = []layout.Vector3{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(points)
}

func writePositionsTable(w io.Writer, points []layout.Vector3) error {
	rows := make([][]string, 0, len(points))
	for i, p := range points {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatFloat(p.X, 'f', 4, 64),
			strconv.FormatFloat(p.Y, 'f', 4, 64),
			strconv.FormatFloat(p.Z, 'f', 4, 64),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("index", "x", "y", "z").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
