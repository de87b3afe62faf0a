package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, restore, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer restore()

			version := Version
			if semver.IsValid(version) && semver.Prerelease(version) != "" {
				version += " (development build)"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "radiobridge %s built %s\nprotocol %s (major %s)\n",
				version, BuildTime, cfg.Protocol, semver.Major(cfg.Protocol))
			return err
		},
	}
}
