package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"panoptes-web/internal/app"
)

func captureRun(t *testing.T, args []string) (app.Options, error) {
	t.Helper()
	var got app.Options
	prev := run
	run = func(ctx context.Context, opts app.Options) error {
		got = opts
		return nil
	}
	t.Cleanup(func() { run = prev })

	a := newApp()
	a.Writer = io.Discard
	a.ErrWriter = io.Discard
	err := a.Run(append([]string{"panoptes-web"}, args...))
	return got, err
}

func TestFlags_Defaults(t *testing.T) {
	opts, err := captureRun(t, nil)
	require.NoError(t, err)

	require.Equal(t, 8888, opts.Port)
	require.False(t, opts.Debug)
	require.Equal(t, "pocs", opts.ConfigName)
	require.Equal(t, "mongo", opts.Store.Driver)
	require.Equal(t, "mongodb://localhost:27017", opts.Store.URI)
	require.Equal(t, "panoptes", opts.Store.Database)
	require.Empty(t, opts.CookieSecret)
	require.Zero(t, opts.MetricsPort)
	require.Equal(t, 5*time.Second, opts.CacheTTL)
	require.NotNil(t, opts.Logger)
}

func TestFlags_CommandLine(t *testing.T) {
	opts, err := captureRun(t, []string{
		"--port", "9999",
		"--debug",
		"--simulator", "camera", "--simulator", "mount",
		"--db-driver", "sqlite", "--db-path", "/tmp/panoptes.db",
		"--cookie-secret", "s3cret",
	})
	require.NoError(t, err)

	require.Equal(t, 9999, opts.Port)
	require.True(t, opts.Debug)
	require.True(t, opts.Logger.IsDebug())
	require.Equal(t, []string{"camera", "mount"}, opts.Simulators)
	require.Equal(t, "sqlite", opts.Store.Driver)
	require.Equal(t, "/tmp/panoptes.db", opts.Store.Path)
	require.Equal(t, "s3cret", opts.CookieSecret)
}

func TestFlags_Environment(t *testing.T) {
	t.Setenv("PANOPTES_WEB_PORT", "8080")
	t.Setenv("PANOPTES_COOKIE_SECRET", "from-env")
	t.Setenv("PANOPTES_REDIS_ADDR", "localhost:6379")
	t.Setenv("PANOPTES_REDIS_TTL", "30s")

	opts, err := captureRun(t, nil)
	require.NoError(t, err)
	require.Equal(t, 8080, opts.Port)
	require.Equal(t, "from-env", opts.CookieSecret)
	require.Equal(t, "localhost:6379", opts.RedisAddr)
	require.Equal(t, 30*time.Second, opts.CacheTTL)
}

func TestRunErrorPropagates(t *testing.T) {
	prev := run
	run = func(context.Context, app.Options) error { return errors.New("bind failed") }
	t.Cleanup(func() { run = prev })

	a := newApp()
	a.ErrWriter = io.Discard
	err := a.Run([]string{"panoptes-web"})
	require.EqualError(t, err, "bind failed")
}
