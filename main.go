// Package main provides the entry point for y86sim.
// y86sim is a cycle-accurate simulator of the five-stage Y86 pipeline.
//
// For the full CLI, use: go run ./cmd/y86sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("y86sim - Y86 Pipeline Simulator")
	fmt.Println("")
	fmt.Println("Usage: y86sim [options] <program.yo>...")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --config      Path to a JSON or YAML configuration file")
	fmt.Println("  --max-cycles  Cycle limit")
	fmt.Println("  --trace       Directory for per-cycle trace files")
	fmt.Println("  --dump        Pretty-print the final core state")
	fmt.Println("  -v            Log every cycle")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/y86sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/y86sim' instead.")
	}
}
