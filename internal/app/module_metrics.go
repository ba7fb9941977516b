package app

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsModule struct{}

func (metricsModule) Name() string { return "metrics" }

func (metricsModule) Start(_ context.Context, env *runtimeEnv, _ chan<- error) (*runningModule, error) {
	if env.metricsPort <= 0 {
		return &runningModule{name: "metrics", started: false}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		env.metrics.Collector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log := env.log.Named("metrics")
	server := newServer(log, net.JoinHostPort(env.address, strconv.Itoa(env.metricsPort)), mux)

	started, err := listenAndServe(log, "metrics", server, false, nil)
	if err != nil || !started {
		return &runningModule{name: "metrics", started: false}, err
	}
	return &runningModule{
		name:    "metrics",
		started: true,
		shutdown: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	}, nil
}
