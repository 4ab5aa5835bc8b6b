package shell

import "github.com/google/shlex"

// Split tokenizes a command string into argv form, respecting single
// quotes, double quotes and backslash escapes the way a POSIX shell
// would, grounded on the original implementation's use of a shlex
// splitter in commands.rs (`build_command`).
func Split(cmd string) ([]string, error) {
	return shlex.Split(cmd)
}
