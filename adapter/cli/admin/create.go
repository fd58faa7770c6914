package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/identity/domain"
)

var (
	createEmail    string
	createPassword string
	createRole     string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if repo == nil {
			return fmt.Errorf("admin repository not available")
		}
		if len(createPassword) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}

		account, err := domain.NewAdmin(createEmail, createPassword, createRole)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		if err := repo.Create(cmd.Context(), account); err != nil {
			return fmt.Errorf("store admin: %w", err)
		}

		fmt.Printf("Admin %s created with role %s\n", account.Email, account.Role)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createEmail, "email", "", "admin email (required)")
	createCmd.Flags().StringVar(&createPassword, "password", "", "admin password (required)")
	createCmd.Flags().StringVar(&createRole, "role", "admin", "account role")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")
}
