package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

var rootCmd = &cobra.Command{
	Use:           "learnstream",
	Short:         "I Do / We Do / You Do learning service",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       fmt.Sprintf("%s (%s)", buildVersion, buildCommit),
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
