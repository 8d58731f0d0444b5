// main is the entry point of the cohortstats CLI.
package main

import (
	"github.com/huangsam/cohortstats/cmd"
	"github.com/huangsam/cohortstats/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Cannot execute command", err)
	}
}
