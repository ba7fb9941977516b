package app

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"panoptes-web/internal/docstore"
)

type dbMaintenanceModule struct{}

func (dbMaintenanceModule) Name() string { return "db_maintenance" }

func (dbMaintenanceModule) Start(ctx context.Context, env *runtimeEnv, _ chan<- error) (*runningModule, error) {
	m, ok := docstore.AsMaintainer(env.settings.DB)
	if !ok || env.maintenance.Interval <= 0 {
		return &runningModule{name: "db_maintenance", started: false}, nil
	}
	log := env.log.Named("db_maintenance")

	opts := docstore.MaintenanceOptions{
		KeepPerCollection: env.maintenance.KeepRecords,
		MinFreeBytes:      16 * 1024 * 1024,
		MinFreeRatio:      0.20,
	}

	runNow := func() {
		ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		res, err := m.Maintain(ctx2, opts)
		if err != nil {
			log.Warn("maintenance failed", "error", err)
			return
		}
		if res.Pruned > 0 {
			log.Info("pruned old records", "rows", res.Pruned, "keep", opts.KeepPerCollection)
		}
		if res.Vacuumed {
			log.Info("vacuumed", "size", humanize.IBytes(uint64(res.Stats.TotalBytes())))
		}
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)

		// Stagger the first run so it doesn't compete with startup.
		startupTimer := time.NewTimer(env.maintenance.Delay)
		defer startupTimer.Stop()
		ticker := time.NewTicker(env.maintenance.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-startupTimer.C:
				runNow()
			case <-ticker.C:
				runNow()
			}
		}
	}()

	return &runningModule{
		name:    "db_maintenance",
		started: true,
		shutdown: func(context.Context) error {
			close(stopCh)
			<-doneCh
			return nil
		},
	}, nil
}
