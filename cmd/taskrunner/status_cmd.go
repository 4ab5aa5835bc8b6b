package main

import (
	"fmt"

	"github.com/banksean/taskrunner"
)

type StatusCmd struct {
	Name string `arg:"" help:"daemon target to query"`
}

func (c *StatusCmd) Run(cctx *Context) error {
	rt := cctx.Runtime
	target, lr := rt.Context.GetTarget(c.Name)
	if lr.Kind != taskrunner.Found {
		return lookupErrorFor(c.Name, rt, lr)
	}
	result, err := taskrunner.Status(rt, c.Name)
	if err != nil {
		return err
	}
	if !result.Running {
		fmt.Printf("[%s] Not running\n", target.Info().Name)
		return nil
	}
	fmt.Printf("[%s] %s\n", target.Info().Name, result.Message)
	return nil
}
