package main

import (
	"fmt"
	"strings"

	"github.com/banksean/taskrunner"
)

// lookupErrorFor formats a non-Found lookup result the way every
// cmd/*.rs subcommand does: "not found" for NotFound, the sorted
// candidate list for Duplicates.
func lookupErrorFor(ref string, rt *taskrunner.Runtime, lr taskrunner.LookupResult) error {
	if lr.Kind == taskrunner.Duplicates {
		return fmt.Errorf("target <%s> is ambiguous, possible values are <%s>, please specify the command to run using one of those names", ref, strings.Join(taskrunner.SortedStrings(lr.Duplicates), ", "))
	}
	return fmt.Errorf("target <%s> not found in config file <%s>", ref, rt.Context.ConfigPath)
}
