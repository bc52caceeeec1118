package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/plantops/utilbalance/pkg/cli/commands"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to the YAML run specification")
		format     = flag.String("format", "", "Output format override: text, json, csv")
		verbose    = flag.Bool("verbose", false, "Enable verbose output")
		help       = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	cmd := commands.NewBalanceCommand(commands.Config{
		ConfigFile: *configFile,
		Format:     *format,
		Verbose:    *verbose,
		Help:       *help,
	}, os.Stdout)

	if err := cmd.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
