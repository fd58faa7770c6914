package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/keygate/keygate/adapter/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the license API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireContainer()
		if err != nil {
			return err
		}

		serverCfg := api.DefaultServerConfig()
		if serveAddr != "" {
			serverCfg.Addr = serveAddr
		} else if c.Config.ListenAddr != "" {
			serverCfg.Addr = c.Config.ListenAddr
		}

		mw := api.NewMiddleware(c.AuthService, c.IPLimiter, c.Logger)
		server := api.NewServer(
			serverCfg,
			api.NewValidationHandler(c.ValidationService, c.Logger),
			api.NewLicenseHandler(c.LicenseService, c.Logger),
			api.NewAuthHandler(c.AuthService, c.Logger),
			mw,
			c.Logger,
		)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			c.Logger.Info("received shutdown signal", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides KEYGATE_LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
