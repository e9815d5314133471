// PeakSeg - Spectrum intensity range query and baseline tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/peakseg/cmd/peakseg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
