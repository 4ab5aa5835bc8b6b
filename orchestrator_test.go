package taskrunner

import (
	"os"
	"testing"
	"time"
)

func newTestRuntime(t *testing.T, raw *RawConfig) *Runtime {
	t.Helper()
	ctx, err := BuildContext(raw, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	return &Runtime{
		Context:  ctx,
		Outputs:  NewOutputsManager(),
		Cleanup:  NewCleanupStack(),
		MetaRoot: t.TempDir(),
	}
}

func TestRunExecCommand(t *testing.T) {
	rt := newTestRuntime(t, &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"hello": {Command: "true"},
			},
		},
	})
	if err := Run(rt, "hello", nil); err != nil {
		t.Fatal(err)
	}
}

func TestRunUnknownTargetIsError(t *testing.T) {
	rt := newTestRuntime(t, &RawConfig{})
	if err := Run(rt, "nope", nil); err == nil {
		t.Fatal("expected lookup error")
	}
}

func TestRunRequiresChain(t *testing.T) {
	rt := newTestRuntime(t, &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"dep":    {Command: "true"},
				"target": {Command: "true", RawTargetInfo: RawTargetInfo{Requires: []string{"dep"}}},
			},
		},
	})
	if err := Run(rt, "target", nil); err != nil {
		t.Fatal(err)
	}
}

func TestStartRequiresChain(t *testing.T) {
	daemonTrue := true
	rt := newTestRuntime(t, &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"dep": {Command: "true"},
				"daemon": {
					Command:        "sleep 5",
					RawTargetInfo:  RawTargetInfo{Requires: []string{"dep"}},
					RawCommandInfo: RawCommandInfo{Daemon: &daemonTrue},
				},
			},
		},
	})
	if err := Start(rt, "daemon", nil); err != nil {
		t.Fatal(err)
	}
	defer Stop(rt, "daemon")

	if lr := lastRunSentinel(rt.MetaRoot, FQN{Tag: "command.exec", Name: "dep"}); lr.Never {
		t.Fatal("expected dep to have run as a requirement before the daemon started")
	}
}

func TestBuildArtifactSkipsWhenUpToDate(t *testing.T) {
	rt := newTestRuntime(t, &RawConfig{
		Artifact: RawArtifactSection{
			Exec: map[string]*RawExecArtifact{
				"out": {
					Command:          "true",
					RawArtifactInfo:  RawArtifactInfo{IfFilesChanged: []string{"*.nonexistent"}},
				},
			},
		},
	})
	if err := Build(rt, "out"); err != nil {
		t.Fatal(err)
	}
	out := FQN{Tag: "artifact.exec", Name: "out"}
	past := time.Unix(1_000_000_000, 0)
	if err := os.Chtimes(lastRunPath(rt.MetaRoot, out), past, past); err != nil {
		t.Fatal(err)
	}
	// Second build should be a no-op (up to date) rather than erroring.
	if err := Build(rt, "out"); err != nil {
		t.Fatal(err)
	}
	if lr := lastRunSentinel(rt.MetaRoot, out); lr.Never || !lr.Time.Equal(past) {
		t.Fatalf("expected second build to be skipped, sentinel is %+v", lr)
	}
}

func TestListSortsByFQN(t *testing.T) {
	rt := newTestRuntime(t, &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"b": {Command: "true"},
				"a": {Command: "true"},
			},
		},
	})
	got := List(rt.Context)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("expected sorted list, got %v", got)
	}
}
