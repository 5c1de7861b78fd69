package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/pkgbuild-sync/internal/config"
)

var (
	// force allows overwriting an existing configuration file.
	force bool

	errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

	// initConfigCmd writes the default settings so they can be edited.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s: %w", configPath, errConfigExists)
			}

			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}
