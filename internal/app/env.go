package app

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"panoptes-web/internal/admin"
	"panoptes-web/internal/metrics"
)

type runtimeEnv struct {
	log         hclog.Logger
	address     string
	port        int
	metricsPort int
	app         *admin.Application
	settings    admin.Settings
	metrics     *metrics.Registry
	maintenance maintenanceConfig
}

type maintenanceConfig struct {
	KeepRecords int
	Interval    time.Duration
	Delay       time.Duration
}
