// Package shell provides POSIX shell argv lexing and quoting, used
// wherever a value needs to be embedded into a shell command string
// (container invocation assembly) or passed through untouched as an
// argv element (foreground/background process spawn).
package shell

import "strings"

// metaChars is the set of characters that force quoting, mirroring
// the original implementation's shlex::try_quote: anything a POSIX
// shell would treat specially, plus whitespace.
const metaChars = " \t\n\"'`$&*()[]{}|;<>?~#!\\"

// Quote returns s, quoted for safe inclusion in a shell command line.
// An empty string always needs quoting (otherwise it vanishes). A
// string containing none of the shell metacharacters is returned
// unquoted. Otherwise it is single-quoted, unless it itself contains a
// single quote, in which case it is double-quoted (with embedded
// double quotes, backslashes, dollar signs and backticks escaped) —
// matching the behavior
// exercised by the original's shell.rs test suite.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsQuoting(s) {
		return s
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(s string) bool {
	for _, r := range s {
		if strings.ContainsRune(metaChars, r) {
			return true
		}
	}
	return false
}

// QuoteJoin quotes each element of args and joins them with a single
// space, the form used for {args} expansion.
func QuoteJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// PrependIfSet quotes value and prepends flag, e.g. PrependIfSet("-e", "foo") => "-e foo".
func PrependIfSet(flag string, value string) string {
	return flag + " " + Quote(value)
}

// PrependAllIfSet quotes every value and prepends flag to each,
// space-joining the results, e.g. ["-e foo", "-e bar"] -> "-e foo -e bar".
func PrependAllIfSet(flag string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = PrependIfSet(flag, v)
	}
	return strings.Join(parts, " ")
}
