package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBillingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Plan, checkout and subscription commands",
	}

	cmd.AddCommand(newBillingEntitlementCmd())
	cmd.AddCommand(newBillingCheckoutCmd())
	cmd.AddCommand(newBillingPWYWCmd())
	cmd.AddCommand(newBillingPortalCmd())
	cmd.AddCommand(newBillingStatusCmd())

	return cmd
}

func newBillingEntitlementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entitlement",
		Short: "Show your current plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			ent, err := apiClient.Billing().Entitlement(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get entitlement: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(ent)
			}

			table := NewTable("PLAN", "PREMIUM", "STATUS", "PERIOD END", "ONE-TIME", "GRANTED")
			table.AddRow(
				ent.Plan,
				fmt.Sprintf("%v", ent.HasPremium),
				formatStatus(deref(ent.SubscriptionStatus)),
				formatTime(ent.CurrentPeriodEnd),
				formatCents(ent.OneTimeAmountCents),
				formatTime(ent.OneTimeGrantedAt),
			)
			table.Render()
			return nil
		},
	}
}

func newBillingCheckoutCmd() *cobra.Command {
	var interval string

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Start a subscription checkout and print the payment page URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := apiClient.Billing().Checkout(context.Background(), interval)
			if err != nil {
				return fmt.Errorf("checkout failed: %w", err)
			}
			fmt.Println(url)
			return nil
		},
	}

	cmd.Flags().StringVar(&interval, "interval", "month", "billing interval: month or year")
	return cmd
}

func newBillingPWYWCmd() *cobra.Command {
	var amount int64

	cmd := &cobra.Command{
		Use:   "pwyw",
		Short: "Start a pay-what-you-want purchase (amount in cents, 0 grants immediately)",
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := apiClient.Billing().StartOneTime(context.Background(), amount)
			if err != nil {
				return fmt.Errorf("failed to start payment: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(intent)
			}
			if intent.Granted {
				fmt.Println("Plan granted")
				return nil
			}
			fmt.Printf("Confirm the payment in the browser with client secret %s\n", deref(intent.ClientSecret))
			return nil
		},
	}

	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in cents")
	return cmd
}

func newBillingPortalCmd() *cobra.Command {
	var returnURL string

	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Print a billing portal URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := apiClient.Billing().Portal(context.Background(), returnURL)
			if err != nil {
				return fmt.Errorf("failed to open billing portal: %w", err)
			}
			fmt.Println(url)
			return nil
		},
	}

	cmd.Flags().StringVar(&returnURL, "return-url", "", "URL to return to after leaving the portal")
	return cmd
}

func newBillingStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the subscription as the payment gateway reports it",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := apiClient.Billing().SubscriptionStatus(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get subscription status: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(status)
			}

			periodEnd := "-"
			if status.CurrentPeriodEnd != nil {
				periodEnd = time.Unix(*status.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339)
			}
			plan := status.Plan
			if plan == "" {
				plan = "-"
			}
			table := NewTable("ACTIVE", "PLAN", "PERIOD END")
			table.AddRow(fmt.Sprintf("%v", status.Active), plan, periodEnd)
			table.Render()
			return nil
		},
	}
}
