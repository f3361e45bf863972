// Package cmd implements the winescan command line: the HTTP server and
// one-shot matching and scanning tools that share its configuration and
// service graph.
package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-wine-scanner/internal/config"
	"github.com/tbourn/go-wine-scanner/internal/observability"
)

type rootOptions struct {
	envFile string
	verbose bool
	version string
}

// NewRootCmd builds the command tree. version is reported by --version and
// recorded on traces.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	root := &cobra.Command{
		Use:           "winescan",
		Short:         "Wine label recognition and venue inventory matching",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newMatchCmd(opts),
		newScanCmd(opts),
	)
	return root
}

// Execute runs the root command with os.Args.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// loadConfig reads the dotenv file (if any) and then the environment.
// Variables already set in the environment win over the file.
func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	observability.SetupLogging(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}
