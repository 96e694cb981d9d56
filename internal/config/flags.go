package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RunFlags collects the parsed flag values shared by the run and list
// subcommands: which profiles/groups to resolve, and (run only) whether to
// keep the temp workspace around after the invocation finishes.
type RunFlags struct {
	Profiles   []string
	Groups     []string
	KeepTmpDir bool
}

// BindRunFlags registers --profile/--group (and, when withKeepTmpDir is true,
// --keep-tmpdir) on cmd and returns a RunFlags pointer populated once Cobra
// parses the command line.
func BindRunFlags(cmd *cobra.Command, withKeepTmpDir bool) *RunFlags {
	rf := &RunFlags{}
	pf := cmd.Flags()
	pf.StringArrayVar(&rf.Profiles, "profile", nil, "profile name to run (repeatable)")
	pf.StringArrayVar(&rf.Groups, "group", nil, "group name to run (repeatable)")
	if withKeepTmpDir {
		pf.BoolVar(&rf.KeepTmpDir, "keep-tmpdir", false, "do not remove the temp workspace on exit")
	}
	return rf
}

// ValidateRunFlags rejects a profile or group name repeated across separate
// --profile/--group occurrences, since that would silently resolve and run
// the same profile twice.
func ValidateRunFlags(rf *RunFlags) error {
	if dup := firstDuplicate(rf.Profiles); dup != "" {
		return fmt.Errorf("--profile %q specified more than once", dup)
	}
	if dup := firstDuplicate(rf.Groups); dup != "" {
		return fmt.Errorf("--group %q specified more than once", dup)
	}
	return nil
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

// WrapperFlags collects the parsed flags for the wrapper subcommand.
type WrapperFlags struct {
	Out string
}

// BindWrapperFlags registers --out on cmd.
func BindWrapperFlags(cmd *cobra.Command) *WrapperFlags {
	wf := &WrapperFlags{}
	cmd.Flags().StringVar(&wf.Out, "out", "", "write the wrapper script to this path instead of stdout")
	return wf
}

// ValidateWrapperFlags refuses to overwrite an existing file at --out, per
// the CLI surface contract.
func ValidateWrapperFlags(wf *WrapperFlags) error {
	if wf.Out == "" {
		return nil
	}
	if _, err := os.Stat(wf.Out); err == nil {
		return fmt.Errorf("--out: refusing to overwrite existing file %s", wf.Out)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("--out: %w", err)
	}
	return nil
}

// ResolveSelection resolves the union of rf.Profiles and rf.Groups (in the
// order given, profiles before groups) against cfg into a single ordered
// Profile list. With neither flag set, it resolves the default profile.
func ResolveSelection(cfg *Config, rf *RunFlags) ([]*Profile, error) {
	if len(rf.Profiles) == 0 && len(rf.Groups) == 0 {
		p, err := cfg.DefaultProfile()
		if err != nil {
			return nil, err
		}
		return []*Profile{p}, nil
	}

	var result []*Profile
	for _, name := range rf.Profiles {
		p, err := cfg.Profile(name)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	for _, name := range rf.Groups {
		profiles, err := cfg.Group(name)
		if err != nil {
			return nil, err
		}
		result = append(result, profiles...)
	}
	return result, nil
}
