// Package main is the entry point for the graphscout command-line
// application. All behavior lives in the cmd package.
package main

import (
	"github.com/graphscout-inc/graphscout-engine/cmd"
)

func main() {
	cmd.Execute()
}
