package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"panoptes-web/internal/admin"
	"panoptes-web/internal/docstore"
	"panoptes-web/internal/metrics"
	"panoptes-web/internal/pocs"
)

const DefaultPort = 8888

type Options struct {
	Port    int
	Address string
	Debug   bool

	// WebRoot holds templates/ and static/. Empty means the executable's directory.
	WebRoot    string
	ConfigName string
	Simulators []string

	// CookieSecret replaces the built-in secret when set.
	CookieSecret string

	Store     docstore.Options
	RedisAddr string
	CacheTTL  time.Duration

	// Periodic pruning and VACUUM for the sqlite driver. Zero interval disables it.
	KeepRecords         int
	MaintenanceInterval time.Duration

	MetricsPort int

	Logger hclog.Logger
	// LookupEnv resolves POCS. PANOPTES_CFG_* overrides come from the process environment.
	LookupEnv func(string) (string, bool)
}

// newApplication is swapped in tests to observe construction.
var newApplication = admin.NewApplication

// Run performs the startup sequence and serves until ctx is cancelled or a
// required listener fails. The store stays open for the life of the process.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	webRoot := strings.TrimSpace(opts.WebRoot)
	if webRoot == "" {
		var err error
		if webRoot, err = DefaultWebRoot(); err != nil {
			return err
		}
	}

	search := pocs.NewSearchPath(nil, lookupEnv, webRoot)
	companion, err := pocs.Locate(search)
	if err != nil {
		return fmt.Errorf("locate %s: %w", pocs.EnvVar, err)
	}
	log.Debug("companion package", "root", companion.Root)

	store, err := docstore.Open(ctx, opts.Store)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	if addr := strings.TrimSpace(opts.RedisAddr); addr != "" {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = docstore.DefaultCacheTTL
		}
		store = docstore.NewCached(store, addr, ttl, log.Named("docstore"))
	}

	configName := strings.TrimSpace(opts.ConfigName)
	if configName == "" {
		configName = pocs.DefaultConfigName
	}
	cfg, err := pocs.LoadConfig(companion.ConfDir, pocs.LoadOptions{
		Names:      []string{configName},
		Simulators: opts.Simulators,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	settings := admin.NewSettings(webRoot, store, cfg, opts.Debug)
	if s := strings.TrimSpace(opts.CookieSecret); s != "" {
		settings.CookieSecret = s
	}

	application, err := newApplication(admin.Routes(), settings, log.Named("admin"))
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	port := opts.Port
	if port <= 0 {
		port = DefaultPort
	}
	env := &runtimeEnv{
		log:         log,
		address:     opts.Address,
		port:        port,
		metricsPort: opts.MetricsPort,
		app:         application,
		settings:    settings,
		metrics:     metrics.NewRegistry(),
		maintenance: maintenanceConfig{
			KeepRecords: opts.KeepRecords,
			Interval:    opts.MaintenanceInterval,
			Delay:       30 * time.Second,
		},
	}

	fatalErrCh := make(chan error, 1)
	modules := []module{
		adminModule{},
		metricsModule{},
		autoreloadModule{},
		dbMaintenanceModule{},
	}

	started := make([]*runningModule, 0, len(modules))
	for _, m := range modules {
		rm, err := m.Start(ctx, env, fatalErrCh)
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for _, prev := range started {
				prev.Stop(shutdownCtx)
			}
			return err
		}
		started = append(started, rm)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-fatalErrCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(started) - 1; i >= 0; i-- {
		started[i].Stop(shutdownCtx)
	}
	return runErr
}

// DefaultWebRoot is the directory holding the running executable.
func DefaultWebRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	if dir == "" {
		return "", errors.New("resolve executable: empty directory")
	}
	return dir, nil
}
