package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uvbrew/internal/config"
)

// configCommand creates the config command and its subcommands.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the effective configuration as TOML.

Values are resolved from flags, UVBREW_* environment variables, the config
file and built-in defaults, in that order. The output can be saved as a
config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(c.Stdout, "# loaded from %s\n", path)
			}
			return config.Encode(cfg, c.Stdout)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configFile
			if path == "" {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
			}
			fmt.Fprintln(c.Stdout, path)
			return nil
		},
	})

	return cmd
}
