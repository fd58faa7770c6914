// Package license provides the CLI commands for managing license records.
package license

import (
	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/licensing/application"
)

var service *application.LicenseService

// SetService provides the license service to the commands in this package.
func SetService(s *application.LicenseService) {
	service = s
}

// Cmd is the parent command for license operations.
var Cmd = &cobra.Command{
	Use:   "license",
	Short: "Issue, list and revoke licenses",
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(revokeCmd)
	Cmd.AddCommand(attemptsCmd)
}
