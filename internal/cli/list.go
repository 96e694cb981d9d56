package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lunest-run/lunest/internal/config"
	"github.com/lunest-run/lunest/internal/driver"
	"github.com/lunest-run/lunest/internal/renderer"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover the selected profiles' tests without running them",
	RunE:  runList,
}

var listFlags *config.RunFlags

func init() {
	listFlags = config.BindRunFlags(listCmd, false)
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := config.ValidateRunFlags(listFlags); err != nil {
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

	profiles, err := config.ResolveSelection(cfg, listFlags)
	if err != nil {
		return driver.NewError("resolve profile selection", err)
	}
	for _, p := range profiles {
		if err := config.ValidateProfile(p); err != nil {
			return driver.NewError("invalid profile "+p.Name, err)
		}
	}

	r := renderer.New(cmd.OutOrStdout())
	code, err := driver.List(cmd.Context(), profiles, cfg.RootDir(), r)
	if err != nil {
		return driver.NewError("list tests", err)
	}
	if code != driver.ExitSuccess {
		return &driver.Error{Code: code, Message: "a child failed to start"}
	}
	return nil
}
