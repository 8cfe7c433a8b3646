// specio is a thin demo CLI exercising the reader façade end to end.
package main

import (
	"fmt"
	"os"

	"github.com/msformats/specio/cmd/specio/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
