package main

import "github.com/banksean/taskrunner"

type RunCmd struct {
	Name string   `arg:"" help:"target to run"`
	Args []string `arg:"" optional:"" help:"positional arguments substituted for {args}"`
}

func (c *RunCmd) Run(cctx *Context) error {
	return taskrunner.Run(cctx.Runtime, c.Name, c.Args)
}
