package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/banksean/taskrunner"
	"github.com/banksean/taskrunner/watch"
)

type WatchCmd struct {
	Name string   `arg:"" help:"target to watch"`
	Args []string `arg:"" optional:"" help:"positional arguments passed to the initial start"`
}

func (c *WatchCmd) Run(cctx *Context) error {
	rt := cctx.Runtime
	target, lr := rt.Context.GetTarget(c.Name)
	if lr.Kind != taskrunner.Found {
		return lookupErrorFor(c.Name, rt, lr)
	}

	triggers, err := watch.GetAll(target.Info().Name, rt.Context)
	if err != nil {
		return err
	}
	slog.Debug("watch triggers", "count", len(triggers))

	if _, ok := target.AsStartable(); ok {
		// Goes through the top-level orchestrator entrypoint, not the
		// capability method directly, so the target's requires are
		// satisfied before its first start (see start_target_inner's
		// run_required call). Re-dispatch on matched changes below
		// uses StartOrRun instead, deliberately skipping the
		// dependency walk (restart_no_deps/run_no_deps).
		if err := taskrunner.Start(rt, c.Name, c.Args); err != nil {
			return err
		}
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}

	roots := watch.FindMinimalWatches(triggers)
	engine, err := watch.NewEngine(roots, 250*time.Millisecond)
	if err != nil {
		return err
	}
	defer engine.Close()
	for _, r := range roots {
		slog.Debug("watching", "path", r)
	}

	return engine.Run(nil, func(changed []string) {
		relative := watch.RelPaths(root, changed)
		for _, trigger := range triggers {
			if !trigger.Matches(relative) {
				continue
			}
			slog.Debug("triggered", "changed", changed, "target", trigger.Target)
			t, ok := rt.Context.Targets[trigger.Target]
			if !ok {
				continue
			}
			if err := taskrunner.StartOrRun(rt, t, nil); err != nil {
				slog.Error("start_or_run failed", "target", trigger.Target, "error", err)
			}
			for _, andThenFQN := range trigger.AndThen {
				andThenTarget, ok := rt.Context.Targets[andThenFQN]
				if !ok {
					continue
				}
				if err := taskrunner.StartOrRun(rt, andThenTarget, nil); err != nil {
					slog.Error("start_or_run failed", "target", andThenFQN, "error", err)
				}
			}
		}
	})
}
