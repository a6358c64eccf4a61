// main is the entry point for the offlined agent CLI.
package main

import (
	"os"

	"github.com/civilsoul/offlined/cmd"
	"github.com/civilsoul/offlined/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Command failed", err)
	}
	os.Exit(0)
}
