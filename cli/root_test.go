package cli_test

import (
	"testing"

	"concertbooking/cli"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := cli.NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "concerts", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := cli.NewRootCommand()
	commands := []string{"concerts", "concert", "book", "confirm", "cancel", "status", "bookings", "whoami"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := cli.NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("api"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("state"))
}

func TestBookCommandFlags(t *testing.T) {
	cmd := cli.NewRootCommand()
	bookCmd, _, err := cmd.Find([]string{"book"})
	require.NoError(t, err)

	tierFlag := bookCmd.Flags().Lookup("tier")
	require.NotNil(t, tierFlag)
	assert.Equal(t, "t", tierFlag.Shorthand)

	retriesFlag := bookCmd.Flags().Lookup("retries")
	require.NotNil(t, retriesFlag)
	assert.Equal(t, "-1", retriesFlag.DefValue)

	assert.NotNil(t, bookCmd.Flags().Lookup("pay"))
	assert.NotNil(t, bookCmd.Flags().Lookup("watch"))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(cli.NewExitError(cli.ExitCommandError, "bad")))
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(assert.AnError))
}
