package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

type module interface {
	Name() string
	Start(ctx context.Context, env *runtimeEnv, fatalErrCh chan<- error) (*runningModule, error)
}

type runningModule struct {
	name     string
	started  bool
	shutdown func(context.Context) error
	close    func() error
}

func (m *runningModule) Stop(ctx context.Context) {
	if m == nil || !m.started {
		return
	}
	if m.shutdown != nil {
		_ = m.shutdown(ctx)
	}
	if m.close != nil {
		_ = m.close()
	}
}

func listenAndServe(log hclog.Logger, name string, server *http.Server, required bool, fatalErrCh chan<- error) (started bool, err error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		if required {
			return false, fmt.Errorf("%s listen %s: %w", name, server.Addr, err)
		}
		log.Warn("listen failed; service disabled", "module", name, "addr", server.Addr, "error", err)
		return false, nil
	}

	go func() {
		log.Info("listening", "module", name, "url", "http://"+ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if required && fatalErrCh != nil {
				fatalErrCh <- err
				return
			}
			log.Error("server stopped", "module", name, "error", err)
		}
	}()

	return true, nil
}

func newServer(log hclog.Logger, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
}
