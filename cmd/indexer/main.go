// Package main is the entry point for the indexer.
package main

import (
	"os"

	"github.com/kailas-cloud/indexer/cmd/indexer/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
