// Package main invokes entrypoint logic for the beacon CLI.
package main

import (
	"os"

	"github.com/gitbeacon/beacon/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
