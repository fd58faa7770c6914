package license

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keygate/keygate/internal/licensing/domain"
)

var (
	listStatus string
	listClient string
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List licenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		if service == nil {
			return fmt.Errorf("license service not available")
		}

		filter := domain.ListFilter{
			ClientName: listClient,
			Limit:      listLimit,
			Offset:     listOffset,
		}
		if listStatus != "" {
			status := domain.Status(listStatus)
			if !domain.IsValidStatus(status) {
				return fmt.Errorf("unknown status %q", listStatus)
			}
			filter.Status = status
		}

		licenses, err := service.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("list licenses: %w", err)
		}

		if len(licenses) == 0 {
			fmt.Println("No licenses found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tAPP\tCLIENT\tSTATUS\tEXPIRES")
		for _, lic := range licenses {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				lic.ID, lic.AppName, lic.ClientName, lic.Status,
				lic.ExpiryDate.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listClient, "client", "", "filter by client name substring")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum rows")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "rows to skip")
}
