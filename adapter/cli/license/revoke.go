package license

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <license-id>",
	Short: "Deactivate a license",
	Long: `Deactivate a license. The record and its audit trail are kept;
the license simply stops validating.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if service == nil {
			return fmt.Errorf("license service not available")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid license ID %q", args[0])
		}

		lic, err := service.Deactivate(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("revoke license: %w", err)
		}

		fmt.Printf("License %s is now %s\n", lic.ID, lic.Status)
		return nil
	},
}
