// Package main provides the y86sim command line interface.
// y86sim runs Y86 object files on the cycle-accurate PIPE model.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
