package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/jo-hoe/cubediary/internal/core"
	"github.com/spf13/cobra"
)

// Execute runs cubectl with the process arguments.
func Execute(ctx context.Context) error {
	return newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "cubectl",
		Short:        "Inspect cube diary layouts and run the diary server",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			installLogger(newLogger(stderr, level))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./config.yaml)")

	load := func(required bool) (*core.ServiceConfig, error) {
		return loadConfig(configPath, required)
	}

	root.AddCommand(newPositionsCmd(load))
	root.AddCommand(newPreviewCmd(load))
	root.AddCommand(newServeCmd(load))
	return root
}

type configLoader func(required bool) (*core.ServiceConfig, error)

// loadConfig reads the configuration from path, $CONFIG_PATH or
// ./config.yaml in that order. When the file is optional and missing,
// the defaults are used.
func loadConfig(path string, required bool) (*core.ServiceConfig, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cwd, "config.yaml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit && !required {
		return core.ParseConfig(nil)
	}
	return core.LoadConfig(path)
}
