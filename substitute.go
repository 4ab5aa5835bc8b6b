package taskrunner

import (
	"fmt"
	"strings"

	"github.com/banksean/taskrunner/shell"
)

// refMatch is what resolveRef found when it matched a placeholder's
// leading dot-segments against a registered target.
type refMatch struct {
	fqn      FQN
	key      string
	isOutput bool
}

// resolveRef greedily matches the longest leading run of dot-joined
// segments in parts against the registry, leaving at least one
// trailing segment as the key (two trailing segments, "output" then
// key, for the output form). It returns ok=false with lr.Kind ==
// NotFound if nothing matched, or lr.Kind == Duplicates if an
// ambiguous short name was encountered along the way.
func resolveRef(parts []string, reg *Registry) (refMatch, LookupResult, bool) {
	for i := len(parts) - 1; i >= 1; i-- {
		candidate := strings.Join(parts[:i], ".")
		lr := reg.Lookup(candidate)
		if lr.Kind == Duplicates {
			return refMatch{}, lr, false
		}
		if lr.Kind != Found {
			continue
		}
		rem := parts[i:]
		if len(rem) == 2 && rem[0] == "output" {
			return refMatch{fqn: lr.FQN, key: rem[1], isOutput: true}, lr, true
		}
		if len(rem) == 1 {
			return refMatch{fqn: lr.FQN, key: rem[0]}, lr, true
		}
		// Matched a ref but the trailing shape doesn't fit the
		// grammar; keep looking for a shorter ref that does.
	}
	return refMatch{}, LookupResult{Kind: NotFound}, false
}

// scanPlaceholders walks text left to right, calling handle for the
// content of every well-formed {...} placeholder and splicing in its
// replacement. A '{' with no matching '}' is left in the output
// untouched, satisfying the "literal brace with no match is left
// intact" invariant. Text with no '{' at all is returned unchanged.
func scanPlaceholders(text string, handle func(content string) (string, error)) (string, error) {
	if !strings.Contains(text, "{") {
		return text, nil
	}
	var b strings.Builder
	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '{')
		if open < 0 {
			b.WriteString(text[i:])
			break
		}
		open += i
		b.WriteString(text[i:open])
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text[open:])
			break
		}
		close += open
		content := text[open+1 : close]
		replacement, err := handle(content)
		if err != nil {
			return "", err
		}
		b.WriteString(replacement)
		i = close + 1
	}
	return b.String(), nil
}

// canonicalizeRefs rewrites every {<short-ref>.key} / {<short-ref>.output.key}
// placeholder in text to its fully-qualified form, so run-time
// expansion never has to disambiguate a short name. {args}, {key}
// (current-target variable) and {globals.key} are left untouched.
func canonicalizeRefs(text string, reg *Registry) (string, error) {
	return scanPlaceholders(text, func(content string) (string, error) {
		if content == "args" {
			return "{args}", nil
		}
		parts := strings.Split(content, ".")
		if len(parts) == 1 {
			return "{" + content + "}", nil
		}
		if parts[0] == "globals" {
			return "{" + content + "}", nil
		}
		match, lr, ok := resolveRef(parts, reg)
		if !ok {
			if lr.Kind == Duplicates {
				return "", fmt.Errorf("reference <%s> is ambiguous, possible values are <%s>", content, strings.Join(SortedStrings(lr.Duplicates), ", "))
			}
			return "", fmt.Errorf("reference <%s> does not resolve to a known target", content)
		}
		if match.isOutput {
			return "{" + match.fqn.String() + ".output." + match.key + "}", nil
		}
		return "{" + match.fqn.String() + "." + match.key + "}", nil
	})
}

// Expand performs run-time substitution of text against the current
// target (currentTarget, whose own `variables` back bare {key}
// placeholders), the resolved context's globals and targets, the
// outputs store, and the per-invocation args/defaultArgs. If no
// {args} placeholder appears anywhere in text but args is non-empty,
// the escaped, space-joined args are appended to the result with one
// separating space (spec.md §4.3; preserved for container commands
// too, see DESIGN.md open question #2).
func Expand(text string, currentTarget *TargetInfo, ctx *Context, outputs *OutputsManager, args []string, defaultArgs *string) (string, error) {
	sawArgs := false
	out, err := scanPlaceholders(text, func(content string) (string, error) {
		if content == "args" {
			sawArgs = true
			if len(args) == 0 {
				if defaultArgs != nil {
					return *defaultArgs, nil
				}
				return "", nil
			}
			return shell.QuoteJoin(args), nil
		}
		parts := strings.Split(content, ".")
		if len(parts) == 1 {
			v, ok := currentTarget.Variables[content]
			if !ok {
				return "", fmt.Errorf("unresolved placeholder {%s}: no such variable on target %s", content, currentTarget.Name)
			}
			return v, nil
		}
		if parts[0] == "globals" {
			key := strings.Join(parts[1:], ".")
			v, ok := ctx.Globals[key]
			if !ok {
				return "", fmt.Errorf("unresolved placeholder {%s}: no such global", content)
			}
			return v, nil
		}
		match, lr, ok := resolveRef(parts, ctx.Registry)
		if !ok {
			if lr.Kind == Duplicates {
				return "", fmt.Errorf("reference <%s> is ambiguous, possible values are <%s>", content, strings.Join(SortedStrings(lr.Duplicates), ", "))
			}
			return "", fmt.Errorf("unresolved placeholder {%s}: no such target or variable", content)
		}
		if match.isOutput {
			v, ok := outputs.Get(match.fqn, match.key)
			if !ok {
				return "", fmt.Errorf("unresolved placeholder {%s}: target %s has no output %q", content, match.fqn, match.key)
			}
			return v, nil
		}
		target, found := ctx.Targets[match.fqn]
		if !found {
			return "", fmt.Errorf("unresolved placeholder {%s}: target %s not found", content, match.fqn)
		}
		v, ok := target.Info().Variables[match.key]
		if !ok {
			return "", fmt.Errorf("unresolved placeholder {%s}: target %s has no variable %q", content, match.fqn, match.key)
		}
		return v, nil
	})
	if err != nil {
		return "", err
	}
	if !sawArgs && len(args) > 0 {
		out = out + " " + shell.QuoteJoin(args)
	}
	return out, nil
}
