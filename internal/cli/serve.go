package cli

import (
	"log/slog"

	"github.com/jo-hoe/cubediary/internal/backend"
	"github.com/jo-hoe/cubediary/internal/core"
	"github.com/jo-hoe/cubediary/internal/metrics"
	"github.com/spf13/cobra"
)

func newServeCmd(load configLoader) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diary HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := load(false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				config.Port = port
			}

			coreService := core.NewCoreService(config, metrics.New())
			defer func() {
				if err := coreService.Close(); err != nil {
					slog.Error("core service close error", "error", err)
				}
			}()
			return backend.Serve(cmd.Context(), config, coreService)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the configured port")
	return cmd
}
