package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "docnorm",
	Short:         "Normalize loosely structured documents for storage",
	Long:          `docnorm expands dotted key paths, coerces schema-declared fields and folds "id" into "_id" before documents are stored.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
