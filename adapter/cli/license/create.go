package license

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/licensing/application"
	"github.com/keygate/keygate/internal/licensing/domain"
)

var (
	createApp     string
	createClient  string
	createExpiry  string
	createStatus  string
	createMonthly bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new license key",
	Long: `Issue a new license key for an application and client.

The plaintext key is printed exactly once. Only its digest is stored,
so a lost key cannot be recovered, only reissued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if service == nil {
			return fmt.Errorf("license service not available")
		}
		expiry, err := time.Parse("2006-01-02", createExpiry)
		if err != nil {
			return fmt.Errorf("--expires must be YYYY-MM-DD: %w", err)
		}

		in := application.CreateLicenseInput{
			AppName:        createApp,
			ClientName:     createClient,
			ExpiryDate:     expiry,
			MonthlyRenewal: createMonthly,
		}
		if createStatus != "" {
			status := domain.Status(createStatus)
			if !domain.IsValidStatus(status) {
				return fmt.Errorf("unknown status %q", createStatus)
			}
			in.Status = status
		}

		lic, key, err := service.Create(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("create license: %w", err)
		}

		fmt.Printf("License created\n")
		fmt.Printf("  ID:      %s\n", lic.ID)
		fmt.Printf("  App:     %s\n", lic.AppName)
		fmt.Printf("  Client:  %s\n", lic.ClientName)
		fmt.Printf("  Status:  %s\n", lic.Status)
		fmt.Printf("  Expires: %s\n", lic.ExpiryDate.Format("2006-01-02"))
		fmt.Printf("\n  Key: %s\n\n", key)
		fmt.Println("Store this key now; it will not be shown again.")
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createApp, "app", "", "application name (required)")
	createCmd.Flags().StringVar(&createClient, "client", "", "client name (required)")
	createCmd.Flags().StringVar(&createExpiry, "expires", "", "expiry date YYYY-MM-DD (required)")
	createCmd.Flags().StringVar(&createStatus, "status", "", "initial status (default pending)")
	createCmd.Flags().BoolVar(&createMonthly, "monthly-renewal", false, "renew expiry monthly")
	_ = createCmd.MarkFlagRequired("app")
	_ = createCmd.MarkFlagRequired("client")
	_ = createCmd.MarkFlagRequired("expires")
}
