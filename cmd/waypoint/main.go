package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath  string
	provider    string
	model       string
	temperature float32 = -1
	maxTurns    int
	verbose     bool
	noColor     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "waypoint",
		Short:         "Travel and job search assistant",
		Long:          "Waypoint drives a tool-calling model over flight, hotel, train, rental and job searches.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to waypoint.yaml (default: search well-known locations)")
	flags.StringVar(&provider, "provider", "", "Model provider: openai or gemini")
	flags.StringVar(&model, "model", "", "Model to use")
	flags.Float32Var(&temperature, "temperature", -1, "Sampling temperature")
	flags.IntVar(&maxTurns, "max-turns", 0, "Maximum model turns per request")
	flags.BoolVar(&verbose, "verbose", false, "Enable verbose output (debug mode)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newTravelCmd(),
		newJobsCmd(),
		newEmailCmd(),
		newServeCmd(),
		newMCPCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
