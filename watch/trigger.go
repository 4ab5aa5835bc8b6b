// Package watch builds file-change trigger sets for a target's
// transitive dependency graph and computes the minimal set of
// directories to watch, grounded on the original implementation's
// watch.rs (WatchTrigger::get_all / find_minimal_watches /
// find_matching_paths).
package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banksean/taskrunner"
)

// Trigger is one target in the watched set: the glob patterns whose
// change should cause Target to re-fire (only artifacts carry
// if_files_changed patterns; commands have none), and the targets that
// should fire immediately afterward (and_then) because they directly
// require Target, within the watched set.
type Trigger struct {
	Paths   []string
	Target  taskrunner.FQN
	AndThen []taskrunner.FQN
}

// GetAll computes the trigger set for watching target: target itself,
// plus every target it transitively requires, with each trigger's
// AndThen populated from the reverse edges discovered during the walk.
func GetAll(target taskrunner.FQN, ctx *taskrunner.Context) ([]Trigger, error) {
	t, ok := ctx.Targets[target]
	if !ok {
		return nil, fmt.Errorf("target <%s> not known", target)
	}
	triggers := map[taskrunner.FQN]*Trigger{}
	triggers[target] = getOne(t)
	andThen := map[taskrunner.FQN][]taskrunner.FQN{}

	toFind := map[taskrunner.FQN]bool{}
	var newlyFound []taskrunner.FQN
	for _, req := range t.Info().Requires {
		newlyFound = append(newlyFound, req)
		andThen[req] = append(andThen[req], target)
	}

	for len(newlyFound) > 0 {
		for _, f := range newlyFound {
			toFind[f] = true
		}
		newlyFound = nil
		for next := range toFind {
			delete(toFind, next)
			if _, ok := triggers[next]; ok {
				continue
			}
			nextTarget, ok := ctx.Targets[next]
			if !ok {
				return nil, fmt.Errorf("target <%s> not known", next)
			}
			triggers[next] = getOne(nextTarget)
			for _, req := range nextTarget.Info().Requires {
				if _, ok := triggers[req]; !ok {
					newlyFound = append(newlyFound, req)
				}
				andThen[req] = append(andThen[req], next)
			}
		}
	}

	for name, list := range andThen {
		if tr, ok := triggers[name]; ok {
			tr.AndThen = list
		}
	}

	out := make([]Trigger, 0, len(triggers))
	for _, tr := range triggers {
		out = append(out, *tr)
	}
	return out, nil
}

func getOne(t taskrunner.Target) *Trigger {
	var paths []string
	if buildable, ok := t.AsBuildable(); ok {
		paths = artifactIfFilesChanged(buildable)
	}
	return &Trigger{Paths: paths, Target: t.Info().Name}
}

// artifactIfFilesChanged extracts if_files_changed from whichever
// concrete artifact type b is.
func artifactIfFilesChanged(b taskrunner.Buildable) []string {
	switch a := b.(type) {
	case *taskrunner.ContainerImageArtifact:
		return a.ArtifactInfo.IfFilesChanged
	case *taskrunner.ExecArtifact:
		return a.ArtifactInfo.IfFilesChanged
	default:
		return nil
	}
}

// Matches reports whether any of trigger's patterns matches any of
// changedPaths (already relative to the config root).
func (t Trigger) Matches(changedPaths []string) bool {
	for _, pattern := range t.Paths {
		for _, p := range changedPaths {
			if matchesPattern(pattern, p) {
				return true
			}
		}
	}
	return false
}

// matchesPattern reports whether path matches pattern, a POSIX glob
// that may contain a "**" recursive segment.
func matchesPattern(pattern, path string) bool {
	if !strings.Contains(pattern, "**") {
		ok, err := filepath.Match(pattern, path)
		return err == nil && ok
	}
	idx := strings.Index(pattern, "**")
	prefix := strings.TrimSuffix(pattern[:idx], "/")
	suffix := strings.TrimPrefix(pattern[idx+2:], "/")
	if prefix != "" && !strings.HasPrefix(path, prefix) {
		return false
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(path, prefix), "/")
	if suffix == "" {
		return true
	}
	if ok, err := filepath.Match(suffix, filepath.Base(rel)); err == nil && ok {
		return true
	}
	ok, err := filepath.Match(suffix, rel)
	return err == nil && ok
}

// FindMinimalWatches flattens every trigger's patterns and reduces
// them to the smallest set of directory roots that together cover
// every pattern, a direct port of watch.rs's find_matching_paths.
func FindMinimalWatches(triggers []Trigger) []string {
	var patterns []string
	for _, t := range triggers {
		patterns = append(patterns, t.Paths...)
	}
	return findMatchingPaths(patterns)
}

func findMatchingPaths(patterns []string) []string {
	result := map[string]bool{}

	for _, pattern := range patterns {
		components := strings.Split(pattern, "/")
		for len(components) > 0 {
			last := components[len(components)-1]
			components = components[:len(components)-1]
			if !strings.ContainsAny(last, "*?[") {
				components = append(components, last)
				break
			}
		}

		var parentDir string
		if len(components) > 0 {
			parentDir = strings.Join(components, "/") + "/"
		} else {
			parentDir = "./"
		}

		shouldAdd := true
		for existing := range result {
			if strings.HasPrefix(parentDir, existing) {
				shouldAdd = false
				break
			}
		}

		if shouldAdd {
			for existing := range result {
				if strings.HasPrefix(existing, parentDir) {
					delete(result, existing)
				}
			}
			result[parentDir] = true
		}
	}

	out := make([]string, 0, len(result))
	for r := range result {
		out = append(out, r)
	}
	return out
}
