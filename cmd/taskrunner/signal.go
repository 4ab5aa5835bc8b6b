package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"

	"github.com/banksean/taskrunner"
)

// errSignaled is returned by the signal-watcher actor to tell the
// run.Group that a SIGINT/SIGTERM arrived, distinguishing that exit
// path from the work actor finishing (successfully or not) on its
// own.
var errSignaled = errors.New("interrupted by signal")

// runWithSignals runs work under an oklog/run.Group alongside a
// signal-watcher actor, replacing the original's busy-poll signal
// thread. On SIGINT/SIGTERM the watcher drains rt.Cleanup in reverse
// order and the process exits 130; a second signal while draining is
// in progress aborts immediately without finishing the drain. work's
// own error (if any) maps to exit code 1.
func runWithSignals(rt *taskrunner.Runtime, work func() error) int {
	var g run.Group

	g.Add(work, func(error) {})

	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	g.Add(func() error {
		select {
		case <-sigc:
			slog.Warn("received interrupt, draining cleanup")
			go func() {
				select {
				case <-sigc:
					slog.Warn("second interrupt, aborting immediately")
					os.Exit(130)
				case <-stop:
				}
			}()
			rt.Cleanup.Drain()
			return errSignaled
		case <-stop:
			return nil
		}
	}, func(error) {
		close(stop)
	})

	switch err := g.Run(); {
	case errors.Is(err, errSignaled):
		return 130
	case err != nil:
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	default:
		return 0
	}
}
