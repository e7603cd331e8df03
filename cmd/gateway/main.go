package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Best effort: config values reference env vars that may live in .env.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "gateway",
		Short:   "Batched, rate-limited client-side gateway for inference models",
		Version: version,
	}

	root.AddCommand(
		newRunCmd(),
		newStatsCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
