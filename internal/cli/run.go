package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lunest-run/lunest/internal/config"
	"github.com/lunest-run/lunest/internal/driver"
	"github.com/lunest-run/lunest/internal/renderer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the selected profiles' tests",
	RunE:  runRun,
}

var runFlags *config.RunFlags

func init() {
	runFlags = config.BindRunFlags(runCmd, true)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := config.ValidateRunFlags(runFlags); err != nil {
		return driver.NewError("invalid flags", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return driver.NewError("determine working directory", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return driver.NewError("load configuration", err)
	}

	profiles, err := config.ResolveSelection(cfg, runFlags)
	if err != nil {
		return driver.NewError("resolve profile selection", err)
	}
	for _, p := range profiles {
		if err := config.ValidateProfile(p); err != nil {
			return driver.NewError("invalid profile "+p.Name, err)
		}
	}

	r := renderer.New(cmd.OutOrStdout())
	code, err := driver.Run(cmd.Context(), profiles, cfg.RootDir(), runFlags.KeepTmpDir, r)
	if err != nil {
		return err
	}
	if code != driver.ExitSuccess {
		return &driver.Error{Code: code, Message: "one or more tests failed"}
	}
	return nil
}
