// Package main provides the entry point for the config-resolver CLI.
package main

import (
	"fmt"
	"os"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/cmd/config-resolver/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
