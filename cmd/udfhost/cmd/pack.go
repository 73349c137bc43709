package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modware/udfhost/internal/host"
	"github.com/modware/udfhost/pkg/udfpkg"
)

var (
	packOutput      string
	packName        string
	packVersion     string
	packDescription string
	packAuthors     []string
)

// packCmd represents the pack command.
var packCmd = &cobra.Command{
	Use:   "pack <module.wasm>",
	Short: "Package a module binary into a distributable bundle",
	Long: `Load a module binary, extract its signature table and write a bundle
carrying the binary, a manifest and the signatures. The bundle can later be
inspected without instantiating the module.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		name, bin, err := loadBinary(args[0])
		if err != nil {
			return err
		}
		if packName != "" {
			name = packName
		}

		// Loading validates the binary and surfaces its signature table.
		h, err := host.New(ctx, host.Options{})
		if err != nil {
			return fmt.Errorf("runtime setup failed: %w", err)
		}
		defer h.Close(ctx)

		m, err := h.Load(ctx, name, bin)
		if err != nil {
			return fmt.Errorf("module load failed: %w", err)
		}

		out := packOutput
		if out == "" {
			out = name + udfpkg.Extension
		}
		if !strings.HasSuffix(out, udfpkg.Extension) {
			out += udfpkg.Extension
		}

		pkg := &udfpkg.Package{
			Manifest: udfpkg.Manifest{
				Name:        name,
				Version:     packVersion,
				Description: packDescription,
				Authors:     packAuthors,
			},
			Module:     bin,
			Signatures: m.Signatures(),
		}
		if err := udfpkg.Write(out, pkg); err != nil {
			return fmt.Errorf("bundle write failed: %w", err)
		}

		fmt.Printf("packaged %s (%d functions) into %s\n", name, len(pkg.Signatures), out)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "Output bundle path")
	packCmd.Flags().StringVar(&packName, "name", "", "Bundle name (default derived from the binary)")
	packCmd.Flags().StringVar(&packVersion, "version", "0.1.0", "Bundle version")
	packCmd.Flags().StringVar(&packDescription, "description", "", "Bundle description")
	packCmd.Flags().StringSliceVar(&packAuthors, "author", nil, "Bundle author (repeatable)")
}
