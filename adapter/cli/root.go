// Package cli implements the keygate command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/app"
)

var (
	logger    *slog.Logger
	container *app.Container
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "keygate",
	Short: "Keygate - license key issuance and validation server",
	Long: `Keygate issues signed license keys, validates them over HTTP,
and keeps an append-only audit trail of every validation attempt.

Run 'keygate serve' to start the API server, or use the license and
admin subcommands to manage records directly.`,
	SilenceUsage: true,
}

// SetLogger sets the logger used by all CLI commands.
func SetLogger(l *slog.Logger) {
	logger = l
}

// SetContainer provides the dependency container to commands that need it.
func SetContainer(c *app.Container) {
	container = c
}

// AddCommand registers a subcommand on the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func requireContainer() (*app.Container, error) {
	if container == nil {
		return nil, fmt.Errorf("no database configured; check KEYGATE_DB_DRIVER and KEYGATE_DATABASE_URL")
	}
	return container, nil
}
