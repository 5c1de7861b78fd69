package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to the provided root command.
// With --short only the semantic version is printed, which suits scripts.
func AttachCobraVersionCommand(root *cobra.Command) {
	var short bool

	command := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the version, commit and build time, taken from ldflags or the Go build info.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text := Full()
			if short {
				text = Short()
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)

			return err
		},
	}

	command.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	root.AddCommand(command)
}
