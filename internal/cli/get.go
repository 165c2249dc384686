package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <record_id>",
		Short: "Show a single record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			resp, err := client.Get("/api/v1/records/" + id + "/")
			if err != nil {
				return fmt.Errorf("get record: %w", err)
			}

			var data struct {
				ID            string         `json:"id"`
				Kind          string         `json:"kind"`
				Status        string         `json:"status"`
				Payload       map[string]any `json:"payload"`
				DateInserted  string         `json:"date_inserted"`
				FailureCount  int            `json:"failure_count"`
				LastFailureAt string         `json:"last_failure_at"`
				ClaimedAt     string         `json:"claimed_at"`
				CompletedAt   string         `json:"completed_at"`
				LastError     string         `json:"last_error"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Record: %s\n", data.ID)
			fmt.Printf("  Kind:      %s\n", data.Kind)
			fmt.Printf("  Status:    %s\n", data.Status)
			fmt.Printf("  Inserted:  %s\n", data.DateInserted)
			fmt.Printf("  Failures:  %d\n", data.FailureCount)
			if data.LastFailureAt != "" {
				fmt.Printf("  Last fail: %s\n", data.LastFailureAt)
			}
			if data.ClaimedAt != "" {
				fmt.Printf("  Claimed:   %s\n", data.ClaimedAt)
			}
			if data.CompletedAt != "" {
				fmt.Printf("  Completed: %s\n", data.CompletedAt)
			}
			if data.LastError != "" {
				fmt.Printf("  Error:     %s\n", data.LastError)
			}
			if len(data.Payload) > 0 {
				payload, _ := json.MarshalIndent(data.Payload, "  ", "  ")
				fmt.Printf("  Payload:   %s\n", payload)
			}
			return nil
		},
	}
}
