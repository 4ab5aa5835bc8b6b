package taskrunner

import (
	"fmt"
	"strings"
)

// foldedInfo is the TargetInfo-shaped part of every declaration, after
// the extends chain has been folded but before requires strings have
// been resolved to FQNs.
type foldedInfo struct {
	requires    []string
	variables   map[string]string
	description string
}

func foldScalar(base, child string) string {
	if child != "" {
		return child
	}
	return base
}

func foldOptionalScalar(base, child *string) *string {
	if child != nil {
		return child
	}
	return base
}

func foldBool(base, child *bool) bool {
	if child != nil {
		return *child
	}
	if base != nil {
		return *base
	}
	return false
}

func foldBoolPtr(base, child *bool) *bool {
	if child != nil {
		return child
	}
	return base
}

func foldList(base, child []string) []string {
	out := make([]string, 0, len(base)+len(child))
	out = append(out, base...)
	out = append(out, child...)
	return out
}

func foldOptionalList(base, child []string) []string {
	if child == nil {
		return base
	}
	if base == nil {
		return append([]string(nil), child...)
	}
	return foldList(base, child)
}

func foldMap(base, child map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(child))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

func foldTargetInfo(base, child foldedInfo) foldedInfo {
	return foldedInfo{
		requires:    foldList(base.requires, child.requires),
		variables:   foldMap(base.variables, child.variables),
		description: foldScalar(base.description, child.description),
	}
}

// extendsChain returns the ordered list of declaration names from the
// root (non-extending) ancestor down to name itself, for declarations
// under a single tag. extendsOf maps every declared name to its raw
// `extends` string (empty if none). A qualified extends value must
// name a target under the same tag; extending a target of a different
// kind isn't supported, since the per-field fold rules are specific to
// each concrete struct shape.
func extendsChain(tag, name string, extendsOf map[string]string) ([]string, error) {
	chain := []string{name}
	seen := map[string]bool{name: true}
	cur := name
	for {
		ext, ok := extendsOf[cur]
		if !ok || ext == "" {
			break
		}
		base := ext
		if strings.Contains(base, ".") {
			prefix := tag + "."
			if !strings.HasPrefix(base, prefix) {
				return nil, fmt.Errorf("%s.%s: extends %q names a different kind of target", tag, name, ext)
			}
			base = strings.TrimPrefix(base, prefix)
		}
		if _, exists := extendsOf[base]; !exists {
			return nil, fmt.Errorf("%s.%s: extends unknown target %q", tag, name, ext)
		}
		if seen[base] {
			return nil, fmt.Errorf("%s.%s: cyclic extends chain involving %q", tag, name, base)
		}
		seen[base] = true
		chain = append(chain, base)
		cur = base
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// BuildContext registers every declared target, folds extends chains,
// canonicalizes references inside string fields, resolves requires
// lists to FQNs, and validates the per-invariant cross-reference
// rules from spec.md §3. The returned Context's targets are immutable
// and fully materialized: no further inheritance or short-name lookup
// is needed at run time.
func BuildContext(raw *RawConfig, configPath string) (*Context, error) {
	reg := NewRegistry()
	for name := range raw.Command.Exec {
		reg.Register(FQN{Tag: "command.exec", Name: name})
	}
	for name := range raw.Command.Container {
		reg.Register(FQN{Tag: "command.container", Name: name})
	}
	for name := range raw.Artifact.ContainerImage {
		reg.Register(FQN{Tag: "artifact.container_image", Name: name})
	}
	for name := range raw.Artifact.Exec {
		reg.Register(FQN{Tag: "artifact.exec", Name: name})
	}

	targets := make(map[FQN]Target)

	if err := resolveExecCommands(raw, reg, targets); err != nil {
		return nil, err
	}
	if err := resolveContainerCommands(raw, reg, targets); err != nil {
		return nil, err
	}
	if err := resolveContainerImageArtifacts(raw, reg, targets); err != nil {
		return nil, err
	}
	if err := resolveExecArtifacts(raw, reg, targets); err != nil {
		return nil, err
	}

	for fqn, t := range targets {
		for _, req := range t.Info().Requires {
			if req == fqn {
				return nil, fmt.Errorf("target <%s> requires itself", fqn)
			}
			if _, ok := targets[req]; !ok {
				return nil, fmt.Errorf("target <%s> requires unknown target <%s>", fqn, req)
			}
		}
	}

	globals := raw.Globals
	if globals == nil {
		globals = map[string]string{}
	}

	return &Context{
		ConfigPath: configPath,
		Globals:    globals,
		Targets:    targets,
		Registry:   reg,
	}, nil
}

// canonicalizeStrings rewrites references inside every string in ss.
// A nil ss stays nil, so an unset path list remains distinguishable
// from an explicit empty one.
func canonicalizeStrings(ss []string, reg *Registry) ([]string, error) {
	if ss == nil {
		return nil, nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		c, err := canonicalizeRefs(s, reg)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func canonicalizeMap(m map[string]string, reg *Registry) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		c, err := canonicalizeRefs(v, reg)
		if err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, nil
}

func canonicalizeOptional(s *string, reg *Registry) (*string, error) {
	if s == nil {
		return nil, nil
	}
	c, err := canonicalizeRefs(*s, reg)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// resolveRequires turns a folded declaration's raw requires strings
// into FQNs, surfacing ambiguity/missing-reference errors the same
// way a direct lookup would (spec.md §4.1).
func resolveRequires(self FQN, raw []string, reg *Registry) ([]FQN, error) {
	out := make([]FQN, 0, len(raw))
	for _, ref := range raw {
		lr := reg.Lookup(ref)
		switch lr.Kind {
		case Found:
			if lr.FQN == self {
				return nil, fmt.Errorf("target <%s> requires itself", self)
			}
			out = append(out, lr.FQN)
		case Duplicates:
			return nil, fmt.Errorf("target <%s>: requires reference <%s> is ambiguous, possible values are <%s>", self, ref, strings.Join(SortedStrings(lr.Duplicates), ", "))
		default:
			return nil, fmt.Errorf("target <%s>: requires unknown target <%s>", self, ref)
		}
	}
	return out, nil
}
