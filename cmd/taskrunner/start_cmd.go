package main

import "github.com/banksean/taskrunner"

type StartCmd struct {
	Name string   `arg:"" help:"daemon target to start"`
	Args []string `arg:"" optional:"" help:"positional arguments substituted for {args}"`
}

func (c *StartCmd) Run(cctx *Context) error {
	return taskrunner.Start(cctx.Runtime, c.Name, c.Args)
}
