package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/modware/udfhost/internal/config"
	"github.com/modware/udfhost/internal/host"
	"github.com/modware/udfhost/internal/server"
)

var (
	serveModule string
	serveAddr   string
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the invocation server",
	Long:  `Start the TCP server that executes exported functions of a loaded module on behalf of remote clients. Each connection frame carries one invocation.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg := config.Get()

		modulePath := serveModule
		if modulePath == "" {
			modulePath = cfg.Module.Path
		}
		name, bin, err := loadBinary(modulePath)
		if err != nil {
			return err
		}

		h, err := host.New(ctx, host.Options{
			CallBudget: cfg.Limits.CallTimeout,
			EnableKV:   cfg.Capabilities.KV,
		})
		if err != nil {
			return fmt.Errorf("runtime setup failed: %w", err)
		}
		defer h.Close(ctx)

		// Validate the binary once before the pool starts minting instances.
		probe, err := h.Load(ctx, name, bin)
		if err != nil {
			return fmt.Errorf("module load failed: %w", err)
		}
		log.Info().
			Str("event", "module_loaded").
			Str("module", probe.Name()).
			Int("functions", len(probe.Signatures())).
			Msg("module ready")

		pool := host.NewInstancePool(cfg.Limits.PoolSize, func(ctx context.Context) (*host.Module, error) {
			return h.Load(ctx, name, bin)
		})
		defer pool.Close(ctx)

		address := serveAddr
		if address == "" {
			address = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		}
		srv, err := server.NewServer(address, &server.PoolInvoker{Pool: pool})
		if err != nil {
			return fmt.Errorf("server setup failed: %w", err)
		}

		// Ensure the stop channel is closed only once.
		var stopOnce sync.Once
		stopChan := make(chan os.Signal, 1)
		signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-stopChan
			log.Info().Msgf("signal %v received, shutting down server", sig)

			stopOnce.Do(func() {
				if err := srv.Stop(); err != nil {
					log.Error().Err(err).Msg("failed to stop server")
				}
				close(stopChan)
			})
		}()

		if err := srv.Start(); err != nil {
			return fmt.Errorf("server start failed: %w", err)
		}

		// Block until a termination signal is received.
		<-stopChan

		log.Info().Msg("server stopped gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveModule, "module", "m", "", "Module binary or bundle to serve (default from config)")
	serveCmd.Flags().StringVarP(&serveAddr, "address", "a", "", "Listen address (default from config)")
}
