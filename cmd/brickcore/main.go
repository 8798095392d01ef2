// Command brickcore builds hierarchical BrickLink inventories from batch
// files, stores them as snapshots and renders them as trees and outlines.
package main

import (
	"brickcore/internal/cli"
	"context"
	"os"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
