package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <record_id>",
		Short: "Clear an ERROR record's failure history for immediate retry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			resp, err := client.Post("/api/v1/records/"+id+"/retry", nil)
			if err != nil {
				return fmt.Errorf("retry record: %w", err)
			}

			var data struct {
				ID           string `json:"id"`
				Status       string `json:"status"`
				FailureCount int    `json:"failure_count"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Reset %s (status %s, failures %d)\n", data.ID, data.Status, data.FailureCount)
			return nil
		},
	}
}
