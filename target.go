package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	runnerContainer "github.com/banksean/taskrunner/container"
	"github.com/banksean/taskrunner/process"
)

// TargetInfo holds the fields every target kind carries, already
// materialized by the resolver: no more inheritance or short-name
// lookups are needed once a Target exists.
type TargetInfo struct {
	Name        FQN
	Requires    []FQN
	Variables   map[string]string
	Description string
}

// CommandInfo is the extra per-command metadata.
type CommandInfo struct {
	Daemon bool
}

// ArtifactInfo is the extra per-artifact metadata. Nil slices mean the
// field was never set (distinct from an explicit empty list) for
// fold-merging purposes in the resolver; by the time a Target exists
// the distinction only matters to the staleness oracle.
type ArtifactInfo struct {
	UpdatesPaths   []string
	IfFilesChanged []string
}

// StatusResult is what Startable.Status reports. Message is only
// meaningful when Running is true; the not-running case has no
// message of its own, matching status.rs's Running(msg)/NotRunning()
// split.
type StatusResult struct {
	Running bool
	Message string
}

// Runnable is implemented by anything `run` can execute: exec/
// container commands run directly; artifacts run by forcing an
// unconditional build (see DESIGN.md open question #3/#5).
type Runnable interface {
	Run(rt *Runtime, args []string) error
}

// Startable is implemented by daemon-capable commands.
type Startable interface {
	Start(rt *Runtime, args []string) error
	Stop(rt *Runtime) error
	Status(rt *Runtime) (StatusResult, error)
}

// Buildable is implemented by artifacts.
type Buildable interface {
	Build(rt *Runtime) error
}

// Target is the closed sum type: every concrete target kind
// implements Info plus whichever capability interfaces apply to it.
// Capability access goes through the As* predicates below rather than
// type assertions scattered through caller code, matching spec.md §9's
// "closed sum type with capability predicates, avoid open dynamic
// dispatch" guidance.
type Target interface {
	Info() *TargetInfo
	AsRunnable() (Runnable, bool)
	AsStartable() (Startable, bool)
	AsBuildable() (Buildable, bool)
}

// --- ExecCommand ---

type ExecCommand struct {
	TargetInfo  TargetInfo
	CommandInfo CommandInfo
	Command     string
	DefaultArgs *string
	Env         []string
}

func (c *ExecCommand) Info() *TargetInfo                  { return &c.TargetInfo }
func (c *ExecCommand) AsRunnable() (Runnable, bool)        { return c, true }
func (c *ExecCommand) AsStartable() (Startable, bool)      { return c, true }
func (c *ExecCommand) AsBuildable() (Buildable, bool)      { return nil, false }

// --- ContainerCommand ---

type ContainerCommand struct {
	TargetInfo    TargetInfo
	CommandInfo   CommandInfo
	Image         string
	Command       *string
	Env           []string
	Mount         map[string]string
	Workdir       *string
	Network       *string
	CreateNetwork bool
	DefaultArgs   *string
}

func (c *ContainerCommand) Info() *TargetInfo             { return &c.TargetInfo }
func (c *ContainerCommand) AsRunnable() (Runnable, bool)   { return c, true }
func (c *ContainerCommand) AsStartable() (Startable, bool) { return c, true }
func (c *ContainerCommand) AsBuildable() (Buildable, bool) { return nil, false }

// --- ContainerImageArtifact ---

type ContainerImageArtifact struct {
	TargetInfo   TargetInfo
	ArtifactInfo ArtifactInfo
	Context      string
	Tag          string
}

func (a *ContainerImageArtifact) Info() *TargetInfo             { return &a.TargetInfo }
func (a *ContainerImageArtifact) AsRunnable() (Runnable, bool)   { return a, true }
func (a *ContainerImageArtifact) AsStartable() (Startable, bool) { return nil, false }
func (a *ContainerImageArtifact) AsBuildable() (Buildable, bool) { return a, true }

// --- ExecArtifact ---

type ExecArtifact struct {
	TargetInfo   TargetInfo
	ArtifactInfo ArtifactInfo
	Command      string
	Env          []string
}

func (a *ExecArtifact) Info() *TargetInfo             { return &a.TargetInfo }
func (a *ExecArtifact) AsRunnable() (Runnable, bool)   { return a, true }
func (a *ExecArtifact) AsStartable() (Startable, bool) { return nil, false }
func (a *ExecArtifact) AsBuildable() (Buildable, bool) { return a, true }

// randSuffix generates the short random suffix container names are
// given to avoid collisions between overlapping invocations, grounded
// on the original implementation's rand_string(8).
func randSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// expandEnv resolves substitutions in every element of env, in order.
func expandEnv(env []string, info *TargetInfo, ctx *Context, outputs *OutputsManager) ([]string, error) {
	out := make([]string, len(env))
	for i, e := range env {
		v, err := Expand(e, info, ctx, outputs, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("expanding env entry %q: %w", e, err)
		}
		out[i] = v
	}
	return out, nil
}

// --- ExecCommand actions ---

func (c *ExecCommand) resolveCommand(rt *Runtime, args []string) (string, error) {
	return Expand(c.Command, &c.TargetInfo, rt.Context, rt.Outputs, args, c.DefaultArgs)
}

func (c *ExecCommand) Run(rt *Runtime, args []string) error {
	cmd, err := c.resolveCommand(rt, args)
	if err != nil {
		return err
	}
	env, err := expandEnv(c.Env, &c.TargetInfo, rt.Context, rt.Outputs)
	if err != nil {
		return err
	}
	slog.Info("running", "target", c.TargetInfo.Name, "command", cmd)
	return process.RunForeground(context.Background(), cmd, env)
}

func (c *ExecCommand) Start(rt *Runtime, args []string) error {
	if err := ensureMetadataDir(rt.MetaRoot, c.TargetInfo.Name); err != nil {
		return err
	}
	cmd, err := c.resolveCommand(rt, args)
	if err != nil {
		return err
	}
	env, err := expandEnv(c.Env, &c.TargetInfo, rt.Context, rt.Outputs)
	if err != nil {
		return err
	}
	name := c.TargetInfo.Name
	onStart := func() { slog.Info("starting", "target", name, "command", cmd) }
	return process.SpawnWithPidfile(cmd, env, pidPath(rt.MetaRoot, name), logPath(rt.MetaRoot, name), onStart)
}

func (c *ExecCommand) Stop(rt *Runtime) error {
	name := c.TargetInfo.Name
	slog.Info("stopping", "target", name)
	return process.StopUsingPidfile(pidPath(rt.MetaRoot, name))
}

func (c *ExecCommand) Status(rt *Runtime) (StatusResult, error) {
	alive, pid := process.StatusFromPidfile(pidPath(rt.MetaRoot, c.TargetInfo.Name))
	if !alive {
		return StatusResult{Running: false}, nil
	}
	return StatusResult{Running: true, Message: fmt.Sprintf("running (pid %d)", pid)}, nil
}

// --- ContainerCommand actions ---

func (c *ContainerCommand) runSpec(rt *Runtime, args []string, containerName string) (runnerContainer.RunSpec, error) {
	info := &c.TargetInfo
	image, err := Expand(c.Image, info, rt.Context, rt.Outputs, nil, nil)
	if err != nil {
		return runnerContainer.RunSpec{}, err
	}
	var command string
	if c.Command != nil {
		command, err = Expand(*c.Command, info, rt.Context, rt.Outputs, args, c.DefaultArgs)
		if err != nil {
			return runnerContainer.RunSpec{}, err
		}
	}
	env, err := expandEnv(c.Env, info, rt.Context, rt.Outputs)
	if err != nil {
		return runnerContainer.RunSpec{}, err
	}
	mount := make(map[string]string, len(c.Mount))
	for k, v := range c.Mount {
		ek, err := Expand(k, info, rt.Context, rt.Outputs, nil, nil)
		if err != nil {
			return runnerContainer.RunSpec{}, err
		}
		ev, err := Expand(v, info, rt.Context, rt.Outputs, nil, nil)
		if err != nil {
			return runnerContainer.RunSpec{}, err
		}
		mount[ek] = ev
	}
	var workdir, network string
	if c.Workdir != nil {
		if workdir, err = Expand(*c.Workdir, info, rt.Context, rt.Outputs, nil, nil); err != nil {
			return runnerContainer.RunSpec{}, err
		}
	}
	if c.Network != nil {
		if network, err = Expand(*c.Network, info, rt.Context, rt.Outputs, nil, nil); err != nil {
			return runnerContainer.RunSpec{}, err
		}
	}
	return runnerContainer.RunSpec{
		ContainerName: containerName,
		Image:         image,
		Command:       command,
		Env:           env,
		Mount:         mount,
		Workdir:       workdir,
		Network:       network,
		CreateNetwork: c.CreateNetwork,
	}, nil
}

func (c *ContainerCommand) Run(rt *Runtime, args []string) error {
	name := c.TargetInfo.Name
	containerName := fmt.Sprintf("%s-%s", name, randSuffix())
	spec, err := c.runSpec(rt, args, containerName)
	if err != nil {
		return err
	}
	plan := runnerContainer.BuildRunCommand(spec)
	for _, pre := range plan.PreCommands {
		if err := process.RunForeground(context.Background(), pre, nil); err != nil {
			return err
		}
	}
	slog.Info("running container", "target", name, "image", spec.Image)
	for _, post := range plan.PostStopCommands {
		post := post
		rt.Cleanup.Push("clean_up_network", func() {
			if err := process.RunForeground(context.Background(), post, nil); err != nil {
				slog.Warn("cleanup command failed", "command", post, "error", err)
			}
		})
	}
	stopCmd := runnerContainer.StopCommand(plan.ContainerName)
	rt.Cleanup.Push("stop_container", func() {
		if err := process.RunForeground(context.Background(), stopCmd, nil); err != nil {
			slog.Warn("stop container failed", "command", stopCmd, "error", err)
		}
	})
	runErr := process.RunForeground(context.Background(), plan.Command, nil)
	// The container already exited with the foreground command above;
	// reclaim its network now rather than leaving it for the
	// signal-watcher's drain, which only fires on an interrupted run.
	rt.Cleanup.Pop("stop_container")
	for range plan.PostStopCommands {
		rt.Cleanup.Pop("clean_up_network")
	}
	return runErr
}

func (c *ContainerCommand) Start(rt *Runtime, args []string) error {
	name := c.TargetInfo.Name
	if err := ensureMetadataDir(rt.MetaRoot, name); err != nil {
		return err
	}
	containerName := fmt.Sprintf("%s-%s", name, randSuffix())
	spec, err := c.runSpec(rt, args, containerName)
	if err != nil {
		return err
	}
	plan := runnerContainer.BuildRunCommand(spec)
	for _, pre := range plan.PreCommands {
		if err := process.RunForeground(context.Background(), pre, nil); err != nil {
			return err
		}
	}
	onStart := func() { slog.Info("starting container", "target", name, "image", spec.Image) }
	if err := process.SpawnWithPidfile(plan.Command, nil, pidPath(rt.MetaRoot, name), logPath(rt.MetaRoot, name), onStart); err != nil {
		return err
	}
	rt.Outputs.Store(name, "name", plan.ContainerName)
	if plan.Network != "" {
		rt.Outputs.Store(name, "network", plan.Network)
	}
	return nil
}

func (c *ContainerCommand) Stop(rt *Runtime) error {
	name := c.TargetInfo.Name
	slog.Info("stopping", "target", name)
	return process.StopUsingPidfile(pidPath(rt.MetaRoot, name))
}

func (c *ContainerCommand) Status(rt *Runtime) (StatusResult, error) {
	alive, pid := process.StatusFromPidfile(pidPath(rt.MetaRoot, c.TargetInfo.Name))
	if !alive {
		return StatusResult{Running: false}, nil
	}
	return StatusResult{Running: true, Message: fmt.Sprintf("running (pid %d)", pid)}, nil
}

// --- ContainerImageArtifact actions ---

func (a *ContainerImageArtifact) Build(rt *Runtime) error {
	info := &a.TargetInfo
	tag, err := Expand(a.Tag, info, rt.Context, rt.Outputs, nil, nil)
	if err != nil {
		return err
	}
	buildContext, err := Expand(a.Context, info, rt.Context, rt.Outputs, nil, nil)
	if err != nil {
		return err
	}
	cmd := runnerContainer.BuildImageCommand(buildContext, tag)
	slog.Info("building", "target", info.Name, "tag", tag)
	sha, err := process.RunForegroundCapturingLastLine(context.Background(), cmd, nil, nil)
	if err != nil {
		return err
	}
	if sha != "" {
		rt.Outputs.Store(info.Name, "sha", sha)
	}
	return touchLastRun(rt.MetaRoot, info.Name)
}

// Run on an artifact forces an unconditional rebuild: artifacts have
// no independent "run" behavior of their own (see DESIGN.md open
// question #3).
func (a *ContainerImageArtifact) Run(rt *Runtime, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("artifact target <%s> does not accept arguments", a.TargetInfo.Name)
	}
	return a.Build(rt)
}

// --- ExecArtifact actions ---

func (a *ExecArtifact) Build(rt *Runtime) error {
	info := &a.TargetInfo
	cmd, err := Expand(a.Command, info, rt.Context, rt.Outputs, nil, nil)
	if err != nil {
		return err
	}
	env, err := expandEnv(a.Env, info, rt.Context, rt.Outputs)
	if err != nil {
		return err
	}
	slog.Info("building", "target", info.Name, "command", cmd)
	if err := process.RunForeground(context.Background(), cmd, env); err != nil {
		return err
	}
	return touchLastRun(rt.MetaRoot, info.Name)
}

func (a *ExecArtifact) Run(rt *Runtime, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("artifact target <%s> does not accept arguments", a.TargetInfo.Name)
	}
	return a.Build(rt)
}
