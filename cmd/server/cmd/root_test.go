package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandHelp(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		cmd := newRootCommand()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(args)

		require.NoError(t, cmd.Execute())
		require.Contains(t, buf.String(), "Togather event API serves published events")
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	cmd := newRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--invalid-flag"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown flag: --invalid-flag")
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := newRootCommand()

	for _, flag := range []string{"config", "log-level", "log-format"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(flag), "persistent flag %q", flag)
	}
	for _, flag := range []string{"host", "port", "seed"} {
		require.NotNil(t, cmd.Flags().Lookup(flag), "serve flag %q on root", flag)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := newRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "events", "healthcheck", "version"} {
		require.True(t, names[want], "expected subcommand %q", want)
	}

	events, _, err := cmd.Find([]string{"events", "list"})
	require.NoError(t, err)
	require.Equal(t, "list", events.Name())

	down, _, err := cmd.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	require.NotNil(t, down.Flags().Lookup("steps"))
}

func TestMigrateDownRejectsZeroSteps(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "down", "--steps", "0"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "--steps must be at least 1")
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL is required")
}
