package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		statusFlag string
		kindFlag   string
		limitFlag  int
		offsetFlag int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlog records",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if statusFlag != "" {
				q.Set("status", statusFlag)
			}
			if kindFlag != "" {
				q.Set("kind", kindFlag)
			}
			q.Set("limit", strconv.Itoa(limitFlag))
			q.Set("offset", strconv.Itoa(offsetFlag))

			resp, err := client.Get("/api/v1/records/?" + q.Encode())
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}

			var data []struct {
				ID           string `json:"id"`
				Kind         string `json:"kind"`
				Status       string `json:"status"`
				FailureCount int    `json:"failure_count"`
				DateInserted string `json:"date_inserted"`
				LastError    string `json:"last_error"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No records found.")
				return nil
			}

			fmt.Printf("%-42s  %-12s  %-10s  %8s  %s\n", "ID", "KIND", "STATUS", "FAILURES", "INSERTED")
			fmt.Printf("%-42s  %-12s  %-10s  %8s  %s\n", "----", "-----", "------", "--------", "--------")
			for _, rec := range data {
				fmt.Printf("%-42s  %-12s  %-10s  %8d  %s\n",
					rec.ID, rec.Kind, rec.Status, rec.FailureCount, rec.DateInserted)
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (NEW, PROCESSING, ERROR, SUCCESS)")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Filter by record kind")
	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum records to show")
	cmd.Flags().IntVar(&offsetFlag, "offset", 0, "Offset into the result set")
	return cmd
}
