package main

import "github.com/banksean/taskrunner"

type BuildCmd struct {
	Name string `arg:"" help:"artifact target to build"`
}

func (c *BuildCmd) Run(cctx *Context) error {
	return taskrunner.Build(cctx.Runtime, c.Name)
}
