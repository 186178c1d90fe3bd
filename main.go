package main

import (
	"fmt"

	"github.com/leanrl/lean-rl-search/benchmarks"
)

// main entry point to the proof-search experiments
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
	}
}
