package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/banksean/taskrunner"
)

// Context is threaded into every subcommand's Run, mirroring
// cmd/sand/main.go's Context. It carries the fully-resolved
// configuration plus the per-invocation mutable state every
// orchestrator call needs.
type Context struct {
	Runtime *taskrunner.Runtime
}

type CLI struct {
	Verbose bool   `help:"enable verbose (info-level) logging"`
	Debug   bool   `help:"enable debug-level logging"`
	Chdir   string `name:"chdir" placeholder:"<dir>" help:"change directory before resolving the config file"`

	Run    RunCmd    `cmd:"" help:"execute the named command or artifact"`
	Start  StartCmd  `cmd:"" help:"spawn a daemon; fails if already running"`
	Stop   StopCmd   `cmd:"" help:"terminate a running daemon"`
	Status StatusCmd `cmd:"" help:"report whether a daemon is running"`
	Build  BuildCmd  `cmd:"" help:"build an artifact, skipped if up-to-date"`
	List   ListCmd   `cmd:"" help:"enumerate target FQNs and their descriptions"`
	Watch  WatchCmd  `cmd:"" help:"start a target and re-run it on matching file changes"`
}

func (c *CLI) initSlog() {
	level := slog.LevelWarn
	switch {
	case c.Debug:
		level = slog.LevelDebug
	case c.Verbose:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli, kong.Description("A declarative task and artifact runner."))
	cli.initSlog()

	if cli.Chdir != "" {
		if err := os.Chdir(cli.Chdir); err != nil {
			fmt.Fprintf(os.Stderr, "chdir %s: %v\n", cli.Chdir, err)
			os.Exit(1)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "getwd: %v\n", err)
		os.Exit(1)
	}

	configPath, err := taskrunner.FindConfigFile(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	raw, err := taskrunner.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	rctx, err := taskrunner.BuildContext(raw, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	rt := &taskrunner.Runtime{
		Context:  rctx,
		Outputs:  taskrunner.NewOutputsManager(),
		Cleanup:  taskrunner.NewCleanupStack(),
		MetaRoot: filepath.Dir(configPath),
	}

	exitCode := runWithSignals(rt, func() error {
		return kctx.Run(&Context{Runtime: rt})
	})
	os.Exit(exitCode)
}
