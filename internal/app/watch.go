package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.trai.ch/memo/internal/adapters/watcher"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// Watch runs once and then again every time the workflow file or the run
// configuration changes, until ctx is done. Failed runs are logged and do not
// end the loop.
func (a *App) Watch(ctx context.Context, opts RunOptions) error {
	root := string(a.deps.Root)
	paths := []string{
		filepath.Join(root, domain.WorkflowFileName),
		filepath.Join(root, domain.WorkflowHCLFileName),
		opts.ConfigPath,
	}
	if err := a.deps.Watcher.Start(ctx, paths...); err != nil {
		return zerr.Wrap(err, "failed to start watcher")
	}
	defer func() { _ = a.deps.Watcher.Stop() }()

	trigger := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		select {
		case trigger <- paths:
		default:
		}
	})
	defer debouncer.Stop()

	go func() {
		for event := range a.deps.Watcher.Events() {
			debouncer.Add(event.Path)
		}
	}()

	a.runOnce(ctx, opts)
	for {
		a.deps.Logger.Info("watching for changes...")
		select {
		case <-ctx.Done():
			return nil
		case changed := <-trigger:
			a.deps.Logger.Info(fmt.Sprintf("change detected: %s", strings.Join(changed, ", ")))
			a.runOnce(ctx, opts)
		}
	}
}

func (a *App) runOnce(ctx context.Context, opts RunOptions) {
	if _, err := a.Run(ctx, opts); err != nil && ctx.Err() == nil {
		a.deps.Logger.Error(err)
	}
}
