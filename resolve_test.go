package taskrunner

import "testing"

func TestBuildContextSimpleExec(t *testing.T) {
	raw := &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"hello": {Command: "echo hello"},
			},
		},
	}
	ctx, err := BuildContext(raw, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	target, lr := ctx.GetTarget("hello")
	if lr.Kind != Found {
		t.Fatalf("expected Found, got %v", lr.Kind)
	}
	ec, ok := target.(*ExecCommand)
	if !ok {
		t.Fatalf("expected *ExecCommand, got %T", target)
	}
	if ec.Command != "echo hello" {
		t.Fatalf("got %q", ec.Command)
	}
}

func TestBuildContextExtendsFold(t *testing.T) {
	daemonTrue := true
	raw := &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"base": {
					Command: "run-base",
					Env:     []string{"A=1"},
					RawCommandInfo: RawCommandInfo{Daemon: &daemonTrue},
				},
				"child": {
					RawTargetInfo: RawTargetInfo{Extends: "base"},
					Env:           []string{"B=2"},
				},
			},
		},
	}
	ctx, err := BuildContext(raw, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	target, lr := ctx.GetTarget("child")
	if lr.Kind != Found {
		t.Fatalf("expected Found, got %v", lr.Kind)
	}
	ec := target.(*ExecCommand)
	if ec.Command != "run-base" {
		t.Fatalf("expected inherited command, got %q", ec.Command)
	}
	if !ec.CommandInfo.Daemon {
		t.Fatal("expected inherited daemon=true")
	}
	if len(ec.Env) != 2 || ec.Env[0] != "A=1" || ec.Env[1] != "B=2" {
		t.Fatalf("expected base-then-child env order, got %v", ec.Env)
	}
}

func TestBuildContextCyclicExtends(t *testing.T) {
	raw := &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"a": {Command: "x", RawTargetInfo: RawTargetInfo{Extends: "b"}},
				"b": {Command: "y", RawTargetInfo: RawTargetInfo{Extends: "a"}},
			},
		},
	}
	if _, err := BuildContext(raw, "<test>"); err == nil {
		t.Fatal("expected cyclic extends error")
	}
}

func TestBuildContextRequiresSelfIsError(t *testing.T) {
	raw := &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"a": {Command: "x", RawTargetInfo: RawTargetInfo{Requires: []string{"a"}}},
			},
		},
	}
	if _, err := BuildContext(raw, "<test>"); err == nil {
		t.Fatal("expected self-require error")
	}
}

func TestBuildContextRequiresUnknownIsError(t *testing.T) {
	raw := &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"a": {Command: "x", RawTargetInfo: RawTargetInfo{Requires: []string{"nope"}}},
			},
		},
	}
	if _, err := BuildContext(raw, "<test>"); err == nil {
		t.Fatal("expected unknown-require error")
	}
}

func TestBuildContextAmbiguousShortName(t *testing.T) {
	raw := &RawConfig{
		Artifact: RawArtifactSection{
			ContainerImage: map[string]*RawContainerImageArtifact{
				"copy": {Context: ".", Tag: "img:latest"},
			},
			Exec: map[string]*RawExecArtifact{
				"copy": {Command: "cp hello world"},
			},
		},
	}
	ctx, err := BuildContext(raw, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	_, lr := ctx.GetTarget("copy")
	if lr.Kind != Duplicates {
		t.Fatalf("expected Duplicates, got %v", lr.Kind)
	}
	got := SortedStrings(lr.Duplicates)
	want := []string{"artifact.container_image.copy", "artifact.exec.copy"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildContextMissingCommandIsError(t *testing.T) {
	raw := &RawConfig{
		Command: RawCommandSection{
			Exec: map[string]*RawExecCommand{
				"a": {},
			},
		},
	}
	if _, err := BuildContext(raw, "<test>"); err == nil {
		t.Fatal("expected missing-command error")
	}
}
