// Package container assembles podman command lines for container
// commands and container-image artifacts. It deliberately knows
// nothing about target resolution or variable substitution: callers
// pass already-expanded strings, and this package's only job is
// correct, safely-quoted command assembly, mirroring the original
// implementation's targets/command/container.rs and
// targets/artifact/container_image.rs.
package container

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/banksean/taskrunner/shell"
)

// RunSpec holds the already-expanded inputs to a `podman run`
// invocation. Every string field has already been through variable
// substitution; this package only quotes and assembles.
type RunSpec struct {
	ContainerName string
	Image         string
	Command       string // empty means no trailing command/args
	Env           []string
	Mount         map[string]string
	Workdir       string
	Network       string
	CreateNetwork bool
}

// RunPlan is the result of assembling a RunSpec: the full `podman run`
// command line to execute, plus any commands that must run before it
// (network creation) and after the container stops (network removal).
type RunPlan struct {
	PreCommands      []string
	PostStopCommands []string
	Command          string
	ContainerName    string
	Network          string
}

// BuildRunCommand assembles the podman invocation for spec. If
// spec.Network is empty and spec.CreateNetwork is set, a network named
// after the container is created before the run and removed after the
// container stops — matching container.rs's auto-network lifecycle.
func BuildRunCommand(spec RunSpec) RunPlan {
	envStr := shell.PrependAllIfSet("-e", spec.Env)
	mountStr := shell.PrependAllIfSet("-v", mountArgs(spec.Mount))

	var workdirStr string
	if spec.Workdir != "" {
		workdirStr = shell.PrependIfSet("-w", spec.Workdir)
	}

	network := spec.Network
	var pre, post []string
	if network == "" && spec.CreateNetwork {
		network = spec.ContainerName
		pre = append(pre, fmt.Sprintf("podman network create %s", shell.Quote(network)))
		post = append(post, fmt.Sprintf("podman network rm %s", shell.Quote(network)))
	}
	var networkStr string
	if network != "" {
		networkStr = shell.PrependIfSet("--network", network)
	}

	cmd := fmt.Sprintf("podman run --name %s --rm %s %s %s %s %s %s",
		shell.Quote(spec.ContainerName),
		envStr,
		mountStr,
		workdirStr,
		networkStr,
		shell.Quote(spec.Image),
		spec.Command,
	)

	return RunPlan{
		PreCommands:      pre,
		PostStopCommands: post,
		Command:          cmd,
		ContainerName:    spec.ContainerName,
		Network:          network,
	}
}

// mountArgs renders a host:container mount map into "host:container"
// strings, expanding a leading "~" in the host path.
func mountArgs(mount map[string]string) []string {
	if len(mount) == 0 {
		return nil
	}
	hosts := make([]string, 0, len(mount))
	for host := range mount {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	out := make([]string, 0, len(mount))
	for _, host := range hosts {
		out = append(out, fmt.Sprintf("%s:%s", expandTilde(host), mount[host]))
	}
	return out
}

// expandTilde replaces a leading "~" with the user's home directory,
// matching shellexpand::tilde in the original implementation.
func expandTilde(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

// StopCommand is the command used to stop a running container by name.
func StopCommand(containerName string) string {
	return fmt.Sprintf("podman stop -i %s", shell.Quote(containerName))
}

// BuildImageCommand assembles a `podman build` invocation producing an
// image tagged imageTag from buildContext, grounded on
// container_image.rs's build invocation.
func BuildImageCommand(buildContext, imageTag string) string {
	return fmt.Sprintf("podman build -t %s %s", shell.Quote(imageTag), shell.Quote(buildContext))
}
