package main

import (
	"fmt"

	"github.com/banksean/taskrunner"
)

type ListCmd struct{}

func (c *ListCmd) Run(cctx *Context) error {
	ctx := cctx.Runtime.Context
	for _, fqn := range taskrunner.List(ctx) {
		fmt.Printf("%s - %s\n", fqn.String(), ctx.Targets[fqn].Info().Description)
	}
	return nil
}
