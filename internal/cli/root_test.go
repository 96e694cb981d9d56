package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunest-run/lunest/internal/driver"
)

func TestRootCommandUse(t *testing.T) {
	assert.Equal(t, "lunest", rootCmd.Use)
}

func TestRootCommandSilenceUsage(t *testing.T) {
	assert.True(t, rootCmd.SilenceUsage, "SilenceUsage must be true to avoid printing usage on errors")
}

func TestRootCommandSilenceErrors(t *testing.T) {
	assert.True(t, rootCmd.SilenceErrors, "SilenceErrors must be true for manual error handling")
}

func TestRootCommandHasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag, "root command must have --verbose persistent flag")
	assert.Equal(t, "v", flag.Shorthand)
}

func TestRootCommandHasQuietFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("quiet")
	require.NotNil(t, flag, "root command must have --quiet persistent flag")
	assert.Equal(t, "q", flag.Shorthand)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	for _, name := range []string{"run", "list", "wrapper", "version"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}
}

func TestExecuteWithHelp(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetArgs(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	code := Execute()
	assert.Equal(t, int(driver.ExitSuccess), code)
	assert.Contains(t, buf.String(), "line-delimited JSON control protocol")
}

func TestExecuteWithUnknownFlag(t *testing.T) {
	rootCmd.SetArgs([]string{"--nonexistent-flag"})
	defer rootCmd.SetArgs(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetErr(buf)
	defer rootCmd.SetErr(nil)

	code := Execute()
	assert.Equal(t, int(driver.ExitFailure), code)
}

func TestRootCmdReturnsCommand(t *testing.T) {
	cmd := RootCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "lunest", cmd.Use)
}

func TestExtractExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error returns ExitSuccess",
			err:  nil,
			want: int(driver.ExitSuccess),
		},
		{
			name: "generic error returns ExitFailure",
			err:  errors.New("something went wrong"),
			want: int(driver.ExitFailure),
		},
		{
			name: "driver.Error preserves its code",
			err:  driver.NewError("fatal error", errors.New("cause")),
			want: int(driver.ExitFailure),
		},
		{
			name: "wrapped driver.Error preserves exit code",
			err:  fmt.Errorf("command failed: %w", driver.NewError("partial", nil)),
			want: int(driver.ExitFailure),
		},
		{
			name: "deeply wrapped driver.Error preserves exit code",
			err:  fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", driver.NewError("deep", nil))),
			want: int(driver.ExitFailure),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := extractExitCode(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}
