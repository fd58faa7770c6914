package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/licensing/infrastructure/crypto"
)

var (
	keygenApp    string
	keygenSecret string
)

// keygenCmd generates a key without touching storage, for smoke tests
// and for wiring staging environments before the database exists.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a license key without storing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := keygenSecret
		if secret == "" {
			if container == nil {
				return fmt.Errorf("no signing secret; pass --secret or set KEYGATE_SIGNING_SECRET")
			}
			secret = container.Config.SigningSecret
		}

		key, hash, err := crypto.CreateKeyPair(crypto.NormalizeAppCode(keygenApp), secret)
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}

		fmt.Printf("Key:    %s\n", key)
		fmt.Printf("Digest: %s\n", hash)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenApp, "app", "", "application name (required)")
	keygenCmd.Flags().StringVar(&keygenSecret, "secret", "", "HMAC secret (defaults to server config)")
	_ = keygenCmd.MarkFlagRequired("app")
	rootCmd.AddCommand(keygenCmd)
}
