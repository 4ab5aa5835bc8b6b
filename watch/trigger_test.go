package watch

import (
	"sort"
	"testing"

	"github.com/banksean/taskrunner"
)

func buildTestContext(t *testing.T) *taskrunner.Context {
	t.Helper()
	raw := &taskrunner.RawConfig{
		Command: taskrunner.RawCommandSection{
			Exec: map[string]*taskrunner.RawExecCommand{
				"target": {
					Command:       "true",
					RawTargetInfo: taskrunner.RawTargetInfo{Requires: []string{"dep"}},
				},
				"dep": {Command: "true"},
			},
		},
		Artifact: taskrunner.RawArtifactSection{
			Exec: map[string]*taskrunner.RawExecArtifact{
				"built": {
					Command:         "true",
					RawArtifactInfo: taskrunner.RawArtifactInfo{IfFilesChanged: []string{"src/*.go"}},
				},
			},
		},
	}
	ctx, err := taskrunner.BuildContext(raw, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	return ctx
}

func TestGetAllSingleTargetNoDeps(t *testing.T) {
	ctx := buildTestContext(t)
	triggers, err := GetAll(taskrunner.FQN{Tag: "artifact.exec", Name: "built"}, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if len(triggers[0].Paths) != 1 || triggers[0].Paths[0] != "src/*.go" {
		t.Fatalf("expected if_files_changed pattern, got %v", triggers[0].Paths)
	}
}

func TestGetAllWithDependency(t *testing.T) {
	ctx := buildTestContext(t)
	triggers, err := GetAll(taskrunner.FQN{Tag: "command.exec", Name: "target"}, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(triggers) != 2 {
		t.Fatalf("expected target + dep, got %d: %+v", len(triggers), triggers)
	}
	byName := map[string]Trigger{}
	for _, tr := range triggers {
		byName[tr.Target.Name] = tr
	}
	dep, ok := byName["dep"]
	if !ok {
		t.Fatal("expected a trigger for dep")
	}
	if len(dep.AndThen) != 1 || dep.AndThen[0].Name != "target" {
		t.Fatalf("expected dep's and_then to include target, got %+v", dep.AndThen)
	}
}

func TestFindMinimalWatchesDedupesOverlap(t *testing.T) {
	got := findMatchingPaths([]string{"test/*.rs", "test/sub/*"})
	want := []string{"test/"}
	assertSet(t, got, want)
}

func TestFindMinimalWatchesDisjoint(t *testing.T) {
	got := findMatchingPaths([]string{"test/*", "other/*"})
	want := []string{"test/", "other/"}
	assertSet(t, got, want)
}

func TestFindMinimalWatchesRootPattern(t *testing.T) {
	got := findMatchingPaths([]string{"*/*/*.rs"})
	want := []string{"./"}
	assertSet(t, got, want)
}

func TestFindMinimalWatchesNested(t *testing.T) {
	got := findMatchingPaths([]string{"src/**/*.rs", "src/lib/**/*.rs"})
	want := []string{"src/"}
	assertSet(t, got, want)
}

func TestMatchesPatternRecursive(t *testing.T) {
	if !matchesPattern("src/**/*.go", "src/pkg/sub/a.go") {
		t.Fatal("expected recursive pattern to match nested file")
	}
	if matchesPattern("src/**/*.go", "other/a.go") {
		t.Fatal("expected pattern restricted to src/ not to match outside it")
	}
}

func assertSet(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
