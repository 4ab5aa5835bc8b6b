package taskrunner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config file names tried, in order, while walking ancestor directories.
// "taskrunner.toml" is the historic name; "pls.toml" is accepted too.
var configFileNames = []string{"taskrunner.toml", "pls.toml"}

// RawConfig mirrors the on-disk TOML schema described in spec.md §6.
type RawConfig struct {
	Globals  map[string]string `toml:"globals"`
	Command  RawCommandSection `toml:"command"`
	Artifact RawArtifactSection `toml:"artifact"`
}

type RawCommandSection struct {
	Exec      map[string]*RawExecCommand      `toml:"exec"`
	Container map[string]*RawContainerCommand `toml:"container"`
}

type RawArtifactSection struct {
	ContainerImage map[string]*RawContainerImageArtifact `toml:"container_image"`
	Exec           map[string]*RawExecArtifact            `toml:"exec"`
}

// RawTargetInfo is the set of fields every kind of target declaration
// shares, embedded into each concrete raw struct below.
type RawTargetInfo struct {
	Extends     string            `toml:"extends"`
	Requires    []string          `toml:"requires"`
	Variables   map[string]string `toml:"variables"`
	Description string            `toml:"description"`
}

type RawCommandInfo struct {
	Daemon *bool `toml:"daemon"`
}

type RawArtifactInfo struct {
	UpdatesPaths    []string `toml:"updates_paths"`
	IfFilesChanged  []string `toml:"if_files_changed"`
}

type RawExecCommand struct {
	RawTargetInfo
	RawCommandInfo
	Command     string   `toml:"command"`
	DefaultArgs *string  `toml:"default_args"`
	Env         []string `toml:"env"`
}

type RawContainerCommand struct {
	RawTargetInfo
	RawCommandInfo
	Image         string            `toml:"image"`
	Command       *string           `toml:"command"`
	Env           []string          `toml:"env"`
	Mount         map[string]string `toml:"mount"`
	Workdir       *string           `toml:"workdir"`
	Network       *string           `toml:"network"`
	CreateNetwork *bool             `toml:"create_network"`
	DefaultArgs   *string           `toml:"default_args"`
}

type RawContainerImageArtifact struct {
	RawTargetInfo
	RawArtifactInfo
	Context string `toml:"context"`
	Tag     string `toml:"tag"`
}

type RawExecArtifact struct {
	RawTargetInfo
	RawArtifactInfo
	Command string   `toml:"command"`
	Env     []string `toml:"env"`
}

// FindConfigFile walks upward from dir looking for a recognized config
// file name, returning its path or an error if none is found by the
// time it reaches the filesystem root.
func FindConfigFile(dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range configFileNames {
			candidate := filepath.Join(cur, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no %s found in %s or any parent directory", configFileNames[0], dir)
		}
		cur = parent
	}
}

// LoadConfig reads and parses the config file at path. It does not
// validate cross-references (that's the resolver's job); it performs
// TOML-level structural decoding plus validateRawConfig's per-field
// non-empty checks.
func LoadConfig(path string) (*RawConfig, error) {
	var cfg RawConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validateRawConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateRawConfig enforces non-empty checks on env entries and on
// container mount keys and values. Variables maps are not checked.
// Required-scalar emptiness (command, image, ...) is NOT checked here:
// a child declaration is allowed to leave such a field empty and
// inherit it via extends, so that check runs post-fold in resolve.go
// against the materialized record instead.
func validateRawConfig(cfg *RawConfig) error {
	for name, c := range cfg.Command.Exec {
		if err := nonEmptyStrings("command.exec."+name+".env", c.Env); err != nil {
			return err
		}
	}
	for name, c := range cfg.Command.Container {
		if err := nonEmptyStrings("command.container."+name+".env", c.Env); err != nil {
			return err
		}
		if err := keysAndValuesNonEmpty("command.container."+name+".mount", c.Mount); err != nil {
			return err
		}
	}
	for name, a := range cfg.Artifact.Exec {
		if err := nonEmptyStrings("artifact.exec."+name+".env", a.Env); err != nil {
			return err
		}
	}
	return nil
}

func nonEmptyStrings(field string, values []string) error {
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("%s: contains an empty string", field)
		}
	}
	return nil
}

func keysAndValuesNonEmpty(field string, m map[string]string) error {
	for k, v := range m {
		if k == "" || v == "" {
			return fmt.Errorf("%s: keys and values must not be empty", field)
		}
	}
	return nil
}
