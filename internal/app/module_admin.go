package app

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"panoptes-web/internal/metrics"
)

type adminModule struct{}

func (adminModule) Name() string { return "admin" }

func (adminModule) Start(_ context.Context, env *runtimeEnv, fatalErrCh chan<- error) (*runningModule, error) {
	handler := metrics.Wrap(env.metrics.Service("admin"), env.app)

	log := env.log.Named("admin")
	server := newServer(log, net.JoinHostPort(env.address, strconv.Itoa(env.port)), handler)

	started, err := listenAndServe(log, "admin", server, true, fatalErrCh)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, fmt.Errorf("admin: failed to start")
	}

	return &runningModule{
		name:    "admin",
		started: true,
		shutdown: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	}, nil
}
