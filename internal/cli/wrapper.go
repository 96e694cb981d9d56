package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lunest-run/lunest/internal/config"
	"github.com/lunest-run/lunest/internal/driver"
	"github.com/lunest-run/lunest/internal/workspace"
)

var wrapperCmd = &cobra.Command{
	Use:   "wrapper",
	Short: "Emit the embedded bootstrap script for scripted-side vendoring",
	RunE:  runWrapper,
}

var wrapperFlags *config.WrapperFlags

func init() {
	wrapperFlags = config.BindWrapperFlags(wrapperCmd)
	rootCmd.AddCommand(wrapperCmd)
}

func runWrapper(cmd *cobra.Command, args []string) error {
	if err := config.ValidateWrapperFlags(wrapperFlags); err != nil {
		return driver.NewError("invalid flags", err)
	}

	script := workspace.BootstrapScript()

	if wrapperFlags.Out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), string(script))
		return err
	}
	if err := os.WriteFile(wrapperFlags.Out, script, 0o644); err != nil {
		return driver.NewError("write wrapper script", err)
	}
	return nil
}
