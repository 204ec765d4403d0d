package init

import (
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize costscope configuration files",
		Long: `Initialize costscope configuration files.

This command helps you create a default config.yaml file with the
store, backup and budget settings the pipeline commands read.`,
	}

	cmd.AddCommand(NewConfigCmd())

	return cmd
}
