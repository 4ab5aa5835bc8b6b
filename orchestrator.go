package taskrunner

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// lookupError turns a non-Found LookupResult into a descriptive error,
// matching the "Found / NotFound / Duplicates" dispatch every cmd/*
// subcommand performs in the original implementation.
func lookupError(ref string, lr LookupResult) error {
	switch lr.Kind {
	case NotFound:
		return fmt.Errorf("no target named <%s>", ref)
	case Duplicates:
		return fmt.Errorf("<%s> is ambiguous, possible values are <%s>", ref, strings.Join(SortedStrings(lr.Duplicates), ", "))
	default:
		return fmt.Errorf("unexpected lookup result for <%s>", ref)
	}
}

// findRequired resolves info.Requires (already-canonicalized FQNs) to
// their concrete Targets.
func findRequired(info *TargetInfo, ctx *Context) ([]Target, error) {
	out := make([]Target, 0, len(info.Requires))
	for _, fqn := range info.Requires {
		t, ok := ctx.Targets[fqn]
		if !ok {
			return nil, fmt.Errorf("target <%s> requires unknown target <%s>", info.Name, fqn)
		}
		out = append(out, t)
	}
	return out, nil
}

// runRequired runs, starts or builds every target info depends on,
// dispatching on capability per spec.md's table: buildable targets
// build when the staleness oracle reports them stale, daemon commands
// start, everything else runs with no arguments and has its last-run
// sentinel touched on success. Grounded on target.rs's run_required.
func runRequired(rt *Runtime, info *TargetInfo) error {
	required, err := findRequired(info, rt.Context)
	if err != nil {
		return err
	}
	for _, t := range required {
		reqInfo := t.Info()
		if buildable, ok := t.AsBuildable(); ok {
			if !shouldRerun(rt.MetaRoot, reqInfo.Name, artifactInfoOf(t), reqInfo.Requires) {
				slog.Debug("required target up to date", "target", info.Name, "requirement", reqInfo.Name)
				continue
			}
			slog.Debug("building required target", "target", info.Name, "requirement", reqInfo.Name)
			if err := buildable.Build(rt); err != nil {
				return fmt.Errorf("building required target <%s>: %w", reqInfo.Name, err)
			}
			continue
		}
		if isDaemon(t) {
			startable, ok := t.AsStartable()
			if !ok {
				return fmt.Errorf("target <%s> is a daemon but is not startable", reqInfo.Name)
			}
			slog.Debug("starting required target", "target", info.Name, "requirement", reqInfo.Name)
			if err := startable.Start(rt, nil); err != nil {
				return fmt.Errorf("starting required target <%s>: %w", reqInfo.Name, err)
			}
			continue
		}
		runnable, ok := t.AsRunnable()
		if !ok {
			return fmt.Errorf("don't know how to satisfy requirement <%s>", reqInfo.Name)
		}
		slog.Debug("running required target", "target", info.Name, "requirement", reqInfo.Name)
		if err := runnable.Run(rt, nil); err != nil {
			return fmt.Errorf("running required target <%s>: %w", reqInfo.Name, err)
		}
		if err := touchLastRun(rt.MetaRoot, reqInfo.Name); err != nil {
			return err
		}
	}
	return nil
}

// isDaemon reports whether t is a command declared with daemon = true.
func isDaemon(t Target) bool {
	switch c := t.(type) {
	case *ExecCommand:
		return c.CommandInfo.Daemon
	case *ContainerCommand:
		return c.CommandInfo.Daemon
	default:
		return false
	}
}

// Run resolves ref, runs everything it requires, then runs ref itself
// (an artifact's "run" forces an unconditional build; see
// DESIGN.md). On success the target's own last-run sentinel is
// touched.
func Run(rt *Runtime, ref string, args []string) error {
	target, lr := rt.Context.GetTarget(ref)
	if lr.Kind != Found {
		return lookupError(ref, lr)
	}
	info := target.Info()
	if err := runRequired(rt, info); err != nil {
		return err
	}
	runnable, ok := target.AsRunnable()
	if !ok {
		return fmt.Errorf("target <%s> cannot be run", info.Name)
	}
	if err := runnable.Run(rt, args); err != nil {
		return err
	}
	if _, buildable := target.AsBuildable(); !buildable {
		// Artifacts touch their own sentinel inside Build; commands
		// touch it here, once the run itself has completed.
		if err := touchLastRun(rt.MetaRoot, info.Name); err != nil {
			return err
		}
	}
	return nil
}

// Start resolves ref, runs its requirements, then starts ref as a
// daemon.
func Start(rt *Runtime, ref string, args []string) error {
	target, lr := rt.Context.GetTarget(ref)
	if lr.Kind != Found {
		return lookupError(ref, lr)
	}
	info := target.Info()
	startable, ok := target.AsStartable()
	if !ok {
		return fmt.Errorf("target <%s> cannot be started", info.Name)
	}
	if err := runRequired(rt, info); err != nil {
		return err
	}
	return startable.Start(rt, args)
}

// Stop resolves ref and stops it.
func Stop(rt *Runtime, ref string) error {
	target, lr := rt.Context.GetTarget(ref)
	if lr.Kind != Found {
		return lookupError(ref, lr)
	}
	startable, ok := target.AsStartable()
	if !ok {
		return fmt.Errorf("target <%s> cannot be stopped", target.Info().Name)
	}
	return startable.Stop(rt)
}

// Status resolves ref and reports whether it is currently running.
func Status(rt *Runtime, ref string) (StatusResult, error) {
	target, lr := rt.Context.GetTarget(ref)
	if lr.Kind != Found {
		return StatusResult{}, lookupError(ref, lr)
	}
	startable, ok := target.AsStartable()
	if !ok {
		return StatusResult{}, fmt.Errorf("target <%s> has no status", target.Info().Name)
	}
	return startable.Status(rt)
}

// Build resolves ref, runs its requirements, then builds it if the
// staleness oracle decides a rebuild is needed.
func Build(rt *Runtime, ref string) error {
	target, lr := rt.Context.GetTarget(ref)
	if lr.Kind != Found {
		return lookupError(ref, lr)
	}
	info := target.Info()
	buildable, ok := target.AsBuildable()
	if !ok {
		return fmt.Errorf("target <%s> is not an artifact", info.Name)
	}
	if err := runRequired(rt, info); err != nil {
		return err
	}
	artifactInfo := artifactInfoOf(target)
	if !shouldRerun(rt.MetaRoot, info.Name, artifactInfo, info.Requires) {
		slog.Info("up to date", "target", info.Name)
		return nil
	}
	return buildable.Build(rt)
}

func artifactInfoOf(t Target) ArtifactInfo {
	switch a := t.(type) {
	case *ContainerImageArtifact:
		return a.ArtifactInfo
	case *ExecArtifact:
		return a.ArtifactInfo
	default:
		return ArtifactInfo{}
	}
}

// StartOrRun dispatches target exactly once, with no dependency walk:
// a daemon command is restarted (stop-then-start), everything else is
// simply run. This is what the watch engine fires on a matched file
// change, mirroring cmd/watch.rs's start_or_run.
func StartOrRun(rt *Runtime, target Target, args []string) error {
	if isDaemon(target) {
		startable, ok := target.AsStartable()
		if !ok {
			return fmt.Errorf("target <%s> is a daemon but is not startable", target.Info().Name)
		}
		if err := startable.Stop(rt); err != nil {
			slog.Warn("stop before restart failed", "target", target.Info().Name, "error", err)
		}
		return startable.Start(rt, args)
	}
	runnable, ok := target.AsRunnable()
	if !ok {
		return fmt.Errorf("target <%s> is not runnable or startable", target.Info().Name)
	}
	return runnable.Run(rt, args)
}

// List returns every registered target's FQN, sorted, for the `list`
// subcommand.
func List(ctx *Context) []FQN {
	fqns := make([]FQN, 0, len(ctx.Targets))
	for fqn := range ctx.Targets {
		fqns = append(fqns, fqn)
	}
	sort.Slice(fqns, func(i, j int) bool { return fqns[i].String() < fqns[j].String() })
	return fqns
}
