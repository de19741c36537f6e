package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp() *cli.App {
	return &cli.App{
		Name: "chatforge",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Action: ingestCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{Name: "tenant", Required: true},
					&cli.StringFlag{Name: "chatbot", Required: true},
				),
			},
			{
				Name:   "chat",
				Action: chatCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{Name: "tenant", Required: true},
					&cli.StringFlag{Name: "chatbot", Required: true},
				),
			},
		},
	}
}

func TestIngestCommandFlags(t *testing.T) {
	t.Run("db is required", func(t *testing.T) {
		err := testApp().Run([]string{"chatforge", "ingest", "--tenant", "t1", "--chatbot", "b1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("tenant is required", func(t *testing.T) {
		err := testApp().Run([]string{"chatforge", "ingest", "--db", "/tmp/test", "--chatbot", "b1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant")
	})

	t.Run("chatbot is required", func(t *testing.T) {
		err := testApp().Run([]string{"chatforge", "ingest", "--db", "/tmp/test", "--tenant", "t1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chatbot")
	})
}

func TestConnectionFlagDefaults(t *testing.T) {
	flags := connectionFlags()

	find := func(name string) cli.Flag {
		for _, flag := range flags {
			for _, n := range flag.Names() {
				if n == name {
					return flag
				}
			}
		}
		return nil
	}

	t.Run("qdrant-host defaults to localhost", func(t *testing.T) {
		flag, ok := find("qdrant-host").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, "localhost", flag.Value)
	})

	t.Run("qdrant-port defaults to the gRPC port", func(t *testing.T) {
		flag, ok := find("qdrant-port").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 6334, flag.Value)
	})

	t.Run("dimension matches the default embedding model", func(t *testing.T) {
		model, ok := find("embedding-model").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, "text-embedding-004", model.Value)

		dim, ok := find("dimension").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 768, dim.Value)
	})

	t.Run("gemini-api-key reads the environment", func(t *testing.T) {
		flag, ok := find("gemini-api-key").(*cli.StringFlag)
		require.True(t, ok)
		assert.Contains(t, flag.EnvVars, "GEMINI_API_KEY")
	})
}

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		for _, input := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(input, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
