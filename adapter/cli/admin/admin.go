// Package admin provides CLI commands for managing admin accounts.
package admin

import (
	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/identity/domain"
)

var repo domain.Repository

// SetRepository provides the admin repository to the commands here.
func SetRepository(r domain.Repository) {
	repo = r
}

// Cmd is the parent command for admin account operations.
var Cmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

func init() {
	Cmd.AddCommand(createCmd)
}
