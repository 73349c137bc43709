// Package cmd provides the CLI commands for the udfhost application.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modware/udfhost/internal/config"
	"github.com/modware/udfhost/internal/logging"
)

var (
	debug bool
	human bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "udfhost",
	Short: "WebAssembly user function host and utilities",
	Long:  `A host runtime and utility tool for packaging, inspecting and invoking user-defined functions compiled to WebAssembly.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("configuration setup failed: %w", err)
		}
		logging.InitLogger(debug, human)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&human, "human", true, "Enable human-readable logs")
}
