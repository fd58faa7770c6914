package license

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts <license-id>",
	Short: "Show the validation history of a license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if service == nil {
			return fmt.Errorf("license service not available")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid license ID %q", args[0])
		}

		attempts, err := service.History(cmd.Context(), id, attemptsLimit)
		if err != nil {
			return fmt.Errorf("fetch attempts: %w", err)
		}

		if len(attempts) == 0 {
			fmt.Println("No validation attempts recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tRESULT\tIP\tREASON")
		for _, a := range attempts {
			reason := ""
			if a.ErrorReason != "" {
				reason = a.ErrorReason
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.ValidatedAt.Format("2006-01-02 15:04:05"), a.Result, a.IPAddress, reason)
		}
		return w.Flush()
	},
}

func init() {
	attemptsCmd.Flags().IntVar(&attemptsLimit, "limit", 50, "maximum rows")
}
