package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// autoreloadModule drops cached templates and static versions whenever the
// web root changes on disk. It only runs with Autoreload set.
type autoreloadModule struct{}

func (autoreloadModule) Name() string { return "autoreload" }

const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

func (autoreloadModule) Start(ctx context.Context, env *runtimeEnv, _ chan<- error) (*runningModule, error) {
	if !env.settings.Autoreload {
		return &runningModule{name: "autoreload", started: false}, nil
	}
	log := env.log.Named("autoreload")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("watcher unavailable; autoreload disabled", "error", err)
		return &runningModule{name: "autoreload", started: false}, nil
	}

	dirs := []string{
		env.settings.TemplatePath,
		filepath.Join(env.settings.TemplatePath, "modules"),
		env.settings.StaticPath,
	}
	for _, dir := range dirs {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			continue
		}
		if err := w.Add(dir); err != nil {
			log.Warn("cannot watch directory", "path", dir, "error", err)
			continue
		}
		log.Debug("watching directory", "path", dir)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&reloadOps == 0 {
					continue
				}
				log.Debug("web root changed", "file", ev.Name, "op", ev.Op.String())
				env.app.Reload()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return &runningModule{
		name:    "autoreload",
		started: true,
		close: func() error {
			err := w.Close()
			<-done
			return err
		},
	}, nil
}
