package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "loglens",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Commands: []*cli.Command{
				{
					Name:   "noop",
					Action: func(c *cli.Context) error { return nil },
				},
			},
		}
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			err := newApp().Run([]string{"loglens", "--log-level", level, "noop"})
			assert.NoError(t, err, "level %s", level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := newApp().Run([]string{"loglens", "--log-level", "verbose", "noop"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestRequireArg(t *testing.T) {
	var got string
	var gotErr error
	app := &cli.App{
		Name: "loglens",
		Commands: []*cli.Command{
			{
				Name: "echo",
				Action: func(c *cli.Context) error {
					got, gotErr = requireArg(c, 0, "issue-id")
					return nil
				},
			},
		},
	}

	require.NoError(t, app.Run([]string{"loglens", "echo", "PROJ-1"}))
	assert.Equal(t, "PROJ-1", got)
	assert.NoError(t, gotErr)

	require.NoError(t, app.Run([]string{"loglens", "echo"}))
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "issue-id is required")
}

func TestBuildCommandFlags(t *testing.T) {
	cmd := &cli.Command{
		Name:   "build",
		Action: buildCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
			},
		},
	}

	t.Run("model has no default value", func(t *testing.T) {
		var modelFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "model" {
				modelFlag = f
				break
			}
		}
		require.NotNil(t, modelFlag)
		assert.Empty(t, modelFlag.Value)
		assert.False(t, modelFlag.Required)
	})

	t.Run("force defaults to false", func(t *testing.T) {
		var forceFlag *cli.BoolFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "force" {
				forceFlag = f
				break
			}
		}
		require.NotNil(t, forceFlag)
		assert.False(t, forceFlag.Value)
	})
}
