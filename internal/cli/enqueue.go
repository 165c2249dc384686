package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newEnqueueCmd() *cobra.Command {
	var payloadFlag string

	cmd := &cobra.Command{
		Use:   "enqueue <kind>",
		Short: "Enqueue a new backlog record",
		Long:  "Enqueue creates a NEW record that the next eligible tick will process. The payload is a JSON object, given inline or with @file to read from disk.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]

			payload := map[string]any{}
			if payloadFlag != "" {
				raw := payloadFlag
				if strings.HasPrefix(raw, "@") {
					data, err := os.ReadFile(raw[1:])
					if err != nil {
						return fmt.Errorf("read payload file: %w", err)
					}
					raw = string(data)
				}
				if err := json.Unmarshal([]byte(raw), &payload); err != nil {
					return fmt.Errorf("parse payload: %w", err)
				}
			}

			resp, err := client.Post("/api/v1/records/", map[string]any{
				"kind":    kind,
				"payload": payload,
			})
			if err != nil {
				return fmt.Errorf("enqueue record: %w", err)
			}

			var data struct {
				ID           string `json:"id"`
				Status       string `json:"status"`
				DateInserted string `json:"date_inserted"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Enqueued %s (%s)\n", data.ID, data.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadFlag, "payload", "", "Record payload as JSON (or @file)")
	return cmd
}
