// Command panoptes-web serves the PANOPTES web admin.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"panoptes-web/internal/app"
	"panoptes-web/internal/docstore"
	"panoptes-web/internal/pocs"
)

var Version = "dev"

// run is replaced in tests.
var run = app.Run

func main() {
	_ = godotenv.Load(".env")

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "panoptes-web",
		Usage:   "PANOPTES web admin",
		Version: Version,
		Flags:   flags(),
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			opts := optionsFromContext(c, log)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "run on the given port",
			EnvVars: []string{"PANOPTES_WEB_PORT"},
			Value:   app.DefaultPort,
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "debug mode: template autoreload and debug logging",
			EnvVars: []string{"PANOPTES_WEB_DEBUG"},
		},
		&cli.StringFlag{
			Name:    "address",
			Usage:   "listen address (empty for all interfaces)",
			EnvVars: []string{"PANOPTES_WEB_ADDRESS"},
		},
		&cli.StringFlag{
			Name:    "web-root",
			Usage:   "directory holding templates/ and static/ (default: executable directory)",
			EnvVars: []string{"PANOPTES_WEB_ROOT"},
		},
		&cli.StringFlag{
			Name:    "config-name",
			Usage:   "POCS config file name, without extension",
			EnvVars: []string{"PANOPTES_CONFIG_NAME"},
			Value:   pocs.DefaultConfigName,
		},
		&cli.StringSliceFlag{
			Name:    "simulator",
			Usage:   "hardware to simulate (repeatable)",
			EnvVars: []string{"PANOPTES_SIMULATOR"},
		},
		&cli.StringFlag{
			Name:    "db-driver",
			Usage:   "document store driver: mongo or sqlite",
			EnvVars: []string{"PANOPTES_DB_DRIVER"},
			Value:   docstore.DriverMongo,
		},
		&cli.StringFlag{
			Name:    "db-uri",
			Usage:   "MongoDB connection URI",
			EnvVars: []string{"PANOPTES_DB_URI"},
			Value:   docstore.DefaultMongoURI,
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "MongoDB database name",
			EnvVars: []string{"PANOPTES_DB_NAME"},
			Value:   docstore.DefaultDatabase,
		},
		&cli.StringFlag{
			Name:    "db-path",
			Usage:   "SQLite database file (sqlite driver)",
			EnvVars: []string{"PANOPTES_DB_PATH"},
		},
		&cli.IntFlag{
			Name:    "db-keep",
			Usage:   "sqlite driver: keep the newest N records per collection (0 keeps all)",
			EnvVars: []string{"PANOPTES_DB_KEEP"},
		},
		&cli.DurationFlag{
			Name:    "db-maintenance-interval",
			Usage:   "sqlite driver: prune and vacuum interval (0 disables)",
			EnvVars: []string{"PANOPTES_DB_MAINTENANCE_INTERVAL"},
			Value:   24 * time.Hour,
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "cache current records in Redis at host:port",
			EnvVars: []string{"PANOPTES_REDIS_ADDR"},
		},
		&cli.DurationFlag{
			Name:    "redis-ttl",
			Usage:   "how long cached current records stay in Redis",
			EnvVars: []string{"PANOPTES_REDIS_TTL"},
			Value:   docstore.DefaultCacheTTL,
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "serve Prometheus metrics on this port (0 disables)",
			EnvVars: []string{"PANOPTES_METRICS_PORT"},
		},
		&cli.StringFlag{
			Name:    "cookie-secret",
			Usage:   "secret used to sign cookies",
			EnvVars: []string{"PANOPTES_COOKIE_SECRET"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "trace, debug, info, warn or error",
			EnvVars: []string{"PANOPTES_LOG_LEVEL"},
			Value:   "info",
		},
		&cli.BoolFlag{
			Name:    "log-json",
			Usage:   "log as JSON",
			EnvVars: []string{"PANOPTES_LOG_JSON"},
		},
	}
}

func newLogger(c *cli.Context) hclog.Logger {
	level := hclog.LevelFromString(c.String("log-level"))
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if c.Bool("debug") && level > hclog.Debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "panoptes-web",
		Level:      level,
		JSONFormat: c.Bool("log-json"),
		Output:     c.App.ErrWriter,
	})
}

func optionsFromContext(c *cli.Context, log hclog.Logger) app.Options {
	return app.Options{
		Port:         c.Int("port"),
		Address:      strings.TrimSpace(c.String("address")),
		Debug:        c.Bool("debug"),
		WebRoot:      c.String("web-root"),
		ConfigName:   c.String("config-name"),
		Simulators:   c.StringSlice("simulator"),
		CookieSecret: c.String("cookie-secret"),
		Store: docstore.Options{
			Driver:   c.String("db-driver"),
			URI:      c.String("db-uri"),
			Database: c.String("db-name"),
			Path:     c.String("db-path"),
		},
		RedisAddr:           c.String("redis-addr"),
		CacheTTL:            c.Duration("redis-ttl"),
		KeepRecords:         c.Int("db-keep"),
		MaintenanceInterval: c.Duration("db-maintenance-interval"),
		MetricsPort:         c.Int("metrics-port"),
		Logger:              log,
	}
}
