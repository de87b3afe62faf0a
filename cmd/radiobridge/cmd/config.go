package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after defaults are applied, as YAML.

Fails when radiobridge.yaml is malformed or a value is out of range.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, restore, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer restore()

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "# %s\n", cfg.Path); err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
