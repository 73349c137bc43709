package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modware/udfhost/internal/cli"
	"github.com/modware/udfhost/internal/host"
	"github.com/modware/udfhost/pkg/udfpkg"
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info <module.wasm|bundle.udfpkg>",
	Short: "Show module metadata and exported functions",
	Long:  `Print the manifest and exported function signatures of a module binary or a packaged bundle. Bundles are inspected without instantiating the module.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		if strings.EqualFold(filepath.Ext(path), udfpkg.Extension) {
			manifest, sigs, err := udfpkg.Inspect(path)
			if err != nil {
				return fmt.Errorf("bundle inspection failed: %w", err)
			}

			fmt.Printf("Name:        %s\n", manifest.Name)
			fmt.Printf("Version:     %s\n", manifest.Version)
			if manifest.Description != "" {
				fmt.Printf("Description: %s\n", manifest.Description)
			}
			if len(manifest.Authors) > 0 {
				fmt.Printf("Authors:     %s\n", strings.Join(manifest.Authors, ", "))
			}
			fmt.Println()
			cli.PrintSignatures(sigs)

			return nil
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		name, bin, err := loadBinary(path)
		if err != nil {
			return err
		}

		h, err := host.New(ctx, host.Options{})
		if err != nil {
			return fmt.Errorf("runtime setup failed: %w", err)
		}
		defer h.Close(ctx)

		m, err := h.Load(ctx, name, bin)
		if err != nil {
			return fmt.Errorf("module load failed: %w", err)
		}

		fmt.Printf("Name: %s\n\n", m.Name())
		cli.PrintSignatures(m.Signatures())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
