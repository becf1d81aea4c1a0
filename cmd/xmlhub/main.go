// Command xmlhub indexes BEAST2 XML analysis files tracked in a Git
// working tree, maintains a supervisor daemon that rebuilds the index
// on change, and can upgrade itself from a signed binaries channel.
//
// Built on github.com/spf13/cobra, following the teacher's own
// command-tree layout under cmd/bd: one file per subcommand, a single
// package-level rootCmd wired up in init(), Execute() called from
// main().
package main

import (
	"fmt"
	"os"
)

func main() {
	if handled, err := dispatchHiddenChild(os.Args); handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, "xmlhub:", err)
			os.Exit(1)
		}
		return
	}
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "xmlhub:", err)
		os.Exit(1)
	}
}
