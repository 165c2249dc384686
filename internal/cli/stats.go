package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show backlog counts and trigger state",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/stats")
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			var data struct {
				Records  map[string]int `json:"records"`
				Triggers []struct {
					Name       string `json:"name"`
					LastRun    string `json:"last_run"`
					LastResult struct {
						Selected      int `json:"selected"`
						Succeeded     int `json:"succeeded"`
						Failed        int `json:"failed"`
						Reclaimed     int `json:"reclaimed"`
						PersistErrors int `json:"persist_errors"`
					} `json:"last_result"`
				} `json:"triggers"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Println("Records:")
			for _, status := range []string{"NEW", "PROCESSING", "ERROR", "SUCCESS"} {
				fmt.Printf("  %-11s %d\n", status+":", data.Records[status])
			}

			if len(data.Triggers) > 0 {
				fmt.Println("Triggers:")
				for _, tr := range data.Triggers {
					lastRun := tr.LastRun
					if lastRun == "" {
						lastRun = "never"
					}
					fmt.Printf("  %-12s last run %s", tr.Name, lastRun)
					if tr.LastRun != "" {
						r := tr.LastResult
						fmt.Printf(" (selected %d, succeeded %d, failed %d", r.Selected, r.Succeeded, r.Failed)
						if r.Reclaimed > 0 {
							fmt.Printf(", reclaimed %d", r.Reclaimed)
						}
						if r.PersistErrors > 0 {
							fmt.Printf(", persist errors %d", r.PersistErrors)
						}
						fmt.Print(")")
					}
					fmt.Println()
				}
			}
			return nil
		},
	}
}
