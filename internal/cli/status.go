package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show API health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			health, err := apiClient.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			readyErr := apiClient.Ready(ctx)

			format := getOutputFormat()
			if format != "table" {
				return printOutput(map[string]interface{}{
					"status":   health.Status,
					"payments": health.Payments,
					"ready":    readyErr == nil,
				})
			}

			fmt.Println("jobtrail API")
			fmt.Println(strings.Repeat("=", 40))
			fmt.Printf("  Status:    %s\n", formatStatus(health.Status))
			if health.Payments {
				fmt.Println("  Payments:  enabled")
			} else {
				fmt.Println("  Payments:  disabled")
			}
			if readyErr != nil {
				fmt.Printf("  Database:  %s (%v)\n", formatStatus("error"), readyErr)
			} else {
				fmt.Printf("  Database:  %s\n", formatStatus("connected"))
			}
			return nil
		},
	}
}
