// Package main provides the llmsweep CLI, which sweeps LLM completion
// endpoints across temperatures and repetitions and saves every reply.
package main

import (
	"os"

	"llmsweep/cmd/llmsweep/internal/cli"
)

func main() {
	app := cli.NewApp()
	rootCmd := app.CreateRootCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
