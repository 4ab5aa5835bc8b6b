package taskrunner

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLatestOfPoisonsOnNever(t *testing.T) {
	if got := latestOf(nil); !got.Never {
		t.Fatal("empty fold should be Never")
	}
	if got := latestOf([]LastRun{never()}); !got.Never {
		t.Fatal("single Never should stay Never")
	}
	now := time.Now()
	if got := latestOf([]LastRun{at(now), never()}); !got.Never {
		t.Fatal("Never should poison a mixed fold regardless of order")
	}
	if got := latestOf([]LastRun{never(), at(now)}); !got.Never {
		t.Fatal("Never should poison a mixed fold regardless of order")
	}
}

func TestLatestOfPicksMax(t *testing.T) {
	early := time.Now().Add(-time.Hour)
	late := time.Now()
	got := latestOf([]LastRun{at(early), at(late)})
	if got.Never || !got.Time.Equal(late) {
		t.Fatalf("expected latest time, got %+v", got)
	}
	got = latestOf([]LastRun{at(late), at(early)})
	if got.Never || !got.Time.Equal(late) {
		t.Fatalf("expected latest time regardless of order, got %+v", got)
	}
}

func TestTouchAndReadLastRunSentinel(t *testing.T) {
	root := t.TempDir()
	target := FQN{Tag: "command.exec", Name: "hello"}
	if lr := lastRunSentinel(root, target); !lr.Never {
		t.Fatal("expected Never before first touch")
	}
	if err := touchLastRun(root, target); err != nil {
		t.Fatal(err)
	}
	if lr := lastRunSentinel(root, target); lr.Never {
		t.Fatal("expected a time after touch")
	}
}

func TestShouldRerunAlwaysWithoutIfFilesChanged(t *testing.T) {
	root := t.TempDir()
	target := FQN{Tag: "artifact.exec", Name: "copy"}
	if !shouldRerun(root, target, ArtifactInfo{}, nil) {
		t.Fatal("expected rerun when if_files_changed is unset")
	}
}

func TestShouldRerunBuildIdempotence(t *testing.T) {
	root := t.TempDir()
	target := FQN{Tag: "artifact.exec", Name: "copy"}
	hello := filepath.Join(root, "hello")
	if err := os.WriteFile(hello, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	info := ArtifactInfo{IfFilesChanged: []string{"hello"}}

	if !shouldRerun(root, target, info, nil) {
		t.Fatal("expected rerun before any sentinel exists")
	}
	if err := touchLastRun(root, target); err != nil {
		t.Fatal(err)
	}
	if shouldRerun(root, target, info, nil) {
		t.Fatal("expected no rerun immediately after a build with no input changes")
	}

	// Make hello strictly newer than the sentinel.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(hello, future, future); err != nil {
		t.Fatal(err)
	}
	if !shouldRerun(root, target, info, nil) {
		t.Fatal("expected rerun after touching an if_files_changed input")
	}
}

func TestShouldRerunRequiresNewerSentinelForcesRerun(t *testing.T) {
	root := t.TempDir()
	target := FQN{Tag: "artifact.exec", Name: "copy"}
	dep := FQN{Tag: "command.exec", Name: "dep"}
	info := ArtifactInfo{IfFilesChanged: []string{"*.nonexistent"}}

	if err := touchLastRun(root, target); err != nil {
		t.Fatal(err)
	}
	if !shouldRerun(root, target, info, []FQN{dep}) {
		t.Fatal("missing dependency sentinel should force rerun")
	}

	if err := touchLastRun(root, dep); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lastRunPath(root, dep), past, past); err != nil {
		t.Fatal(err)
	}
	if shouldRerun(root, target, info, []FQN{dep}) {
		t.Fatal("dep sentinel older than target sentinel should not force rerun")
	}

	future := time.Now().Add(time.Hour)
	depPath := lastRunPath(root, dep)
	if err := os.Chtimes(depPath, future, future); err != nil {
		t.Fatal(err)
	}
	if !shouldRerun(root, target, info, []FQN{dep}) {
		t.Fatal("dep sentinel newer than target sentinel should force rerun")
	}
}

func TestExpandGlobRecursive(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src", "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "pkg", "a.go"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	matches, err := expandGlob(root, "src/**/*.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %v", matches)
	}
}
