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
	"github.com/modware/udfhost/pkg/wire"
)

var sigName string

// sigCmd represents the sig command.
var sigCmd = &cobra.Command{
	Use:   "sig <module.wasm|bundle.udfpkg>",
	Short: "List exported function signatures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		var sigs []wire.FunctionSignature
		if strings.EqualFold(filepath.Ext(path), udfpkg.Extension) {
			_, bundleSigs, err := udfpkg.Inspect(path)
			if err != nil {
				return fmt.Errorf("bundle inspection failed: %w", err)
			}
			sigs = bundleSigs
		} else {
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
			sigs = m.Signatures()
		}

		if sigName != "" {
			for _, sig := range sigs {
				if sig.Name == sigName {
					fmt.Println(sig)

					return nil
				}
			}

			return fmt.Errorf("no exported function named %s", sigName)
		}

		cli.PrintSignatures(sigs)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sigCmd)

	sigCmd.Flags().StringVarP(&sigName, "name", "n", "", "Show only the named function")
}
