package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banksean/taskrunner"
)

func newTestContext(t *testing.T, raw *taskrunner.RawConfig) *Context {
	t.Helper()
	rctx, err := taskrunner.BuildContext(raw, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	return &Context{Runtime: &taskrunner.Runtime{
		Context:  rctx,
		Outputs:  taskrunner.NewOutputsManager(),
		Cleanup:  taskrunner.NewCleanupStack(),
		MetaRoot: t.TempDir(),
	}}
}

func TestRunCmdExecutesTarget(t *testing.T) {
	cctx := newTestContext(t, &taskrunner.RawConfig{
		Command: taskrunner.RawCommandSection{
			Exec: map[string]*taskrunner.RawExecCommand{
				"hello": {Command: "true"},
			},
		},
	})
	cmd := &RunCmd{Name: "hello"}
	if err := cmd.Run(cctx); err != nil {
		t.Fatal(err)
	}
}

func TestRunCmdUnknownTarget(t *testing.T) {
	cctx := newTestContext(t, &taskrunner.RawConfig{})
	cmd := &RunCmd{Name: "nope"}
	if err := cmd.Run(cctx); err == nil {
		t.Fatal("expected error for unknown target")
	}
}

func TestStatusCmdReportsNotRunning(t *testing.T) {
	cctx := newTestContext(t, &taskrunner.RawConfig{
		Command: taskrunner.RawCommandSection{
			Exec: map[string]*taskrunner.RawExecCommand{
				"d": {Command: "sleep 60", RawCommandInfo: taskrunner.RawCommandInfo{Daemon: boolPtr(true)}},
			},
		},
	})
	cmd := &StatusCmd{Name: "d"}
	stdout := captureStdout(t, func() {
		if err := cmd.Run(cctx); err != nil {
			t.Fatal(err)
		}
	})
	want := "[command.exec.d] Not running\n"
	if stdout != want {
		t.Fatalf("got %q, want %q", stdout, want)
	}
}

func TestListCmdPrintsNameDashDescription(t *testing.T) {
	cctx := newTestContext(t, &taskrunner.RawConfig{
		Command: taskrunner.RawCommandSection{
			Exec: map[string]*taskrunner.RawExecCommand{
				"hello": {Command: "true", RawTargetInfo: taskrunner.RawTargetInfo{Description: "says hello"}},
			},
		},
	})
	cmd := &ListCmd{}
	stdout := captureStdout(t, func() {
		if err := cmd.Run(cctx); err != nil {
			t.Fatal(err)
		}
	})
	want := "command.exec.hello - says hello\n"
	if stdout != want {
		t.Fatalf("got %q, want %q", stdout, want)
	}
}

func TestBuildCmdSkipsWhenUpToDate(t *testing.T) {
	cctx := newTestContext(t, &taskrunner.RawConfig{
		Artifact: taskrunner.RawArtifactSection{
			Exec: map[string]*taskrunner.RawExecArtifact{
				"out": {
					Command:         "true",
					RawArtifactInfo: taskrunner.RawArtifactInfo{IfFilesChanged: []string{"*.nonexistent"}},
				},
			},
		},
	})
	cmd := &BuildCmd{Name: "out"}
	if err := cmd.Run(cctx); err != nil {
		t.Fatal(err)
	}
	sentinel := filepath.Join(cctx.Runtime.MetaRoot, ".taskrunner", "artifact.exec.out", "last_run")
	past := time.Unix(1_000_000_000, 0)
	if err := os.Chtimes(sentinel, past, past); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(cctx); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(sentinel)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(past) {
		t.Fatalf("expected second build to be skipped, sentinel mtime is %v", info.ModTime())
	}
}

func boolPtr(b bool) *bool { return &b }

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}
