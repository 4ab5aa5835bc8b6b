package taskrunner

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LastRun is either Never (no recorded completion, or one forced by a
// missing required file/output) or a concrete completion Time. Never
// poisons any fold it participates in: a single Never anywhere in a
// comparison forces the overall result to Never, so staleness checks
// default to "rebuild" whenever evidence is incomplete.
type LastRun struct {
	Never bool
	Time  time.Time
}

func never() LastRun { return LastRun{Never: true} }
func at(t time.Time) LastRun { return LastRun{Time: t} }

// latestOf folds a set of LastRun values to the most recent one,
// except that any Never in the set poisons the whole fold to Never.
func latestOf(times []LastRun) LastRun {
	result := LastRun{}
	first := true
	for _, t := range times {
		if t.Never {
			return never()
		}
		if first || t.Time.After(result.Time) {
			result = t
			first = false
		}
	}
	if first {
		return never()
	}
	return result
}

// metadataDir returns the .taskrunner/<fqn> directory for target,
// rooted at root (the directory containing the config file).
func metadataDir(root string, target FQN) string {
	return filepath.Join(root, ".taskrunner", target.String())
}

func pidPath(root string, target FQN) string  { return filepath.Join(metadataDir(root, target), "pid") }
func logPath(root string, target FQN) string  { return filepath.Join(metadataDir(root, target), "log") }
func lastRunPath(root string, target FQN) string {
	return filepath.Join(metadataDir(root, target), "last_run")
}

func ensureMetadataDir(root string, target FQN) error {
	return os.MkdirAll(metadataDir(root, target), 0o755)
}

// touchLastRun creates (or updates the mtime of) the last-run
// sentinel file for target, recording a successful completion.
func touchLastRun(root string, target FQN) error {
	if err := ensureMetadataDir(root, target); err != nil {
		return err
	}
	path := lastRunPath(root, target)
	now := time.Now()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		f.Close()
	}
	return os.Chtimes(path, now, now)
}

func lastRunSentinel(root string, target FQN) LastRun {
	info, err := os.Stat(lastRunPath(root, target))
	if err != nil {
		return never()
	}
	return at(info.ModTime())
}

// globMTimes expands pattern (a POSIX glob, with "**" matching any
// number of directory levels) relative to root and returns
// the mtime of every match. ignoreMissing controls whether a pattern
// matching nothing contributes a Never (forcing staleness) or is
// simply skipped.
func globMTimes(root, pattern string, ignoreMissing bool) []LastRun {
	matches, err := expandGlob(root, pattern)
	if err != nil || len(matches) == 0 {
		if ignoreMissing {
			return nil
		}
		return []LastRun{never()}
	}
	out := make([]LastRun, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, at(info.ModTime()))
	}
	if len(out) == 0 && !ignoreMissing {
		return []LastRun{never()}
	}
	return out
}

// expandGlob resolves a single glob pattern (which may contain a "**"
// recursive segment, not supported by filepath.Glob) against root.
func expandGlob(root, pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(root, pattern)
	}
	if !strings.Contains(full, "**") {
		return filepath.Glob(full)
	}
	idx := strings.Index(full, "**")
	prefix := strings.TrimSuffix(full[:idx], "/")
	suffix := strings.TrimPrefix(full[idx+2:], "/")
	var results []string
	err := filepath.Walk(prefix, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(prefix, path)
		if err != nil {
			return nil
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		ok, err := filepath.Match(suffix, filepath.Base(rel))
		if err == nil && ok {
			results = append(results, path)
			return nil
		}
		if ok2, _ := filepath.Match(suffix, rel); ok2 {
			results = append(results, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// lastRunTime computes "the last run time" for an artifact per
// spec.md §4.5: if updates_paths is set, it's the MINIMUM mtime across
// every expanded output path, and a missing output forces Never. Else
// it's the mtime of the last-run sentinel file (or Never if absent).
// See DESIGN.md's open-question note for why this follows spec.md's
// prose rather than the one retrieved source snapshot's fold direction.
func lastRunTime(root string, target FQN, info ArtifactInfo) LastRun {
	if info.UpdatesPaths == nil {
		return lastRunSentinel(root, target)
	}
	var min LastRun
	first := true
	for _, pattern := range info.UpdatesPaths {
		matches, err := expandGlob(root, pattern)
		if err != nil || len(matches) == 0 {
			return never()
		}
		for _, m := range matches {
			fi, err := os.Stat(m)
			if err != nil {
				return never()
			}
			cur := at(fi.ModTime())
			if first || cur.Time.Before(min.Time) {
				min = cur
				first = false
			}
		}
	}
	if first {
		return never()
	}
	return min
}

// shouldRerun decides whether an artifact with artifactInfo must
// rebuild, given its already-resolved requirement FQNs, per spec.md
// §4.5: always rerun if if_files_changed is unset; else rerun if the
// sentinel is missing, any if_files_changed input is newer than it, or
// any requirement's own sentinel is newer than (or absent relative to)
// this target's.
func shouldRerun(root string, target FQN, info ArtifactInfo, requires []FQN) bool {
	if info.IfFilesChanged == nil {
		return true
	}
	last := lastRunTime(root, target, info)
	if last.Never {
		return true
	}
	var inputTimes []LastRun
	for _, pattern := range info.IfFilesChanged {
		inputTimes = append(inputTimes, globMTimes(root, pattern, true)...)
	}
	for _, t := range inputTimes {
		if !t.Never && t.Time.After(last.Time) {
			return true
		}
	}
	for _, req := range requires {
		reqLast := lastRunSentinel(root, req)
		if reqLast.Never {
			return true
		}
		if reqLast.Time.After(last.Time) {
			return true
		}
	}
	return false
}
