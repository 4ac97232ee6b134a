// Command supraxsched is a small driver around the scheduling engines in
// sched/depgraph and sched/resgraph: it reproduces spec.md §8's named
// scenarios end to end for inspection, and reads a declarative instruction
// list out of YAML for ad hoc runs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
