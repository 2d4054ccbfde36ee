// Package main is the gathersync entry point.
package main

import (
	"os"

	"github.com/contentforge/gathersync/internal/cli"

	// Register store backends.
	_ "github.com/contentforge/gathersync/pkg/stores/postgres"
	_ "github.com/contentforge/gathersync/pkg/stores/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
