// Command graphpush compiles RDF triple patterns to parameterized Cypher.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/graphpush/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
