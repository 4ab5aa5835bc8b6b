package main

import "github.com/banksean/taskrunner"

type StopCmd struct {
	Name string `arg:"" help:"daemon target to stop"`
}

func (c *StopCmd) Run(cctx *Context) error {
	return taskrunner.Stop(cctx.Runtime, c.Name)
}
