// Command leadscorectl scores lead exports offline and loads them into a
// running leadscore server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "leadscorectl",
	Short:         "Score and import CRM leads",
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
