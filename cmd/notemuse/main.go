// Package main is the entry point for the notemuse bot.
package main

import (
	"os"

	"github.com/jmylchreest/notemuse/cmd/notemuse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
