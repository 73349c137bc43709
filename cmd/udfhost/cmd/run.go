package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/modware/udfhost/internal/cli"
	"github.com/modware/udfhost/internal/config"
	"github.com/modware/udfhost/internal/host"
	"github.com/modware/udfhost/pkg/wire"
)

var (
	runInteractive bool
	runTimeout     time.Duration
	runKV          bool
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run <module.wasm|bundle.udfpkg> [function [args...]]",
	Short: "Invoke an exported function",
	Long: `Load a module and invoke one of its exported functions. Arguments are
given positionally and parsed according to the function signature: scalars
literally, bytes as hex and arrays or maps as JSON. With --interactive the
call is composed in a form instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		name, bin, err := loadBinary(args[0])
		if err != nil {
			return err
		}

		budget := runTimeout
		if budget == 0 {
			budget = config.Get().Limits.CallTimeout
		}

		h, err := host.New(ctx, host.Options{
			CallBudget: budget,
			EnableKV:   runKV,
		})
		if err != nil {
			return fmt.Errorf("runtime setup failed: %w", err)
		}
		defer h.Close(ctx)

		m, err := h.Load(ctx, name, bin)
		if err != nil {
			return fmt.Errorf("module load failed: %w", err)
		}

		var (
			function string
			callArgs []wire.Value
		)
		switch {
		case runInteractive:
			fn, parsed, ok, err := cli.RunCallForm(m.Signatures())
			if err != nil {
				return fmt.Errorf("interactive form failed: %w", err)
			}
			if !ok {
				return nil
			}
			function, callArgs = fn, parsed
		case len(args) >= 2:
			function = args[1]
			sig, err := m.Signature(function)
			if err != nil {
				return err
			}
			callArgs, err = cli.ParseArgs(sig, args[2:])
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("function name required unless --interactive is set")
		}

		result, err := m.Invoke(ctx, function, callArgs)
		if err != nil {
			return fmt.Errorf("invocation failed: %w", err)
		}

		fmt.Println(cli.FormatResult(result))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Compose the call in an interactive form")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-call execution budget (default from config)")
	runCmd.Flags().BoolVar(&runKV, "kv", false, "Expose the key-value capability to the module")
}
