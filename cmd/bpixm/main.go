// cmd/bpixm/main.go
//
// Entry point for the bpixm mounting tracker. Run without arguments in the
// working directory that holds bpixm.yaml and the data/ revisions to get the
// interactive menus; the subcommands cover the revision housekeeping that
// is handy from scripts.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bpixm: %v\n", err)
		os.Exit(1)
	}
}
