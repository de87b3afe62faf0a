// Package cmd implements the radiobridge CLI commands.
//
// The root command carries the configuration flags; subcommands load
// radiobridge.yaml through the config package and run the bridge against
// the simulated host in sim.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/go-drift/radiobridge/cmd/radiobridge/internal/config"
	"github.com/go-drift/radiobridge/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "radiobridge",
		Short: "Bluetooth activation bridge with a simulated native host",
		Long: `radiobridge routes Bluetooth enable and discoverability requests through
a single-slot activity result correlator, the way a mobile plugin hands them
to the operating system and waits for the user's answer.

Configuration is read from radiobridge.yaml in the working directory, from
the file named by $RADIOBRIDGE_CONFIG, or from --config.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to radiobridge.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose error reports")

	rootCmd.AddCommand(
		newSimulateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

// load resolves the configuration and installs an error handler writing to
// the command's error stream. The returned func restores the default handler.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Resolved, func(), error) {
	cfg, err := config.Resolve(config.Path(o.configPath))
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		cfg.Verbose = true
	}
	errors.SetHandler(&errors.LogHandler{Verbose: cfg.Verbose, Out: cmd.ErrOrStderr()})
	return cfg, func() { errors.SetHandler(nil) }, nil
}
