package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/jobtrail/internal/api/dto"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands that work directly on the database",
	}

	cmd.AddCommand(newAdminEntitlementCmd())
	cmd.AddCommand(newAdminGrantZeroCmd())
	cmd.AddCommand(newAdminEventsCmd())
	cmd.AddCommand(newAdminSyncCmd())

	return cmd
}

func newAdminEntitlementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entitlement <user-id>",
		Short: "Show a user's stored entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperatorStore(func(ctx context.Context, s *operatorStore) error {
				u, err := s.users.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				return printEntitlement(dto.NewEntitlementDTO(u))
			})
		},
	}
}

func newAdminGrantZeroCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-zero <user-id>",
		Short: "Grant the pay-what-you-want plan at zero cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperatorStore(func(ctx context.Context, s *operatorStore) error {
				u, err := s.grantZero(ctx, args[0])
				if err != nil {
					return err
				}
				return printEntitlement(dto.NewEntitlementDTO(u))
			})
		},
	}
}

func printEntitlement(ent dto.EntitlementDTO) error {
	if getOutputFormat() != "table" {
		return printOutput(ent)
	}
	table := NewTable("USER", "PLAN", "CUSTOMER", "STATUS", "PERIOD END", "ONE-TIME")
	table.AddRow(
		ent.UserID,
		ent.Plan,
		deref(ent.ProcessorCustomerID),
		formatStatus(deref(ent.SubscriptionStatus)),
		formatTime(ent.CurrentPeriodEnd),
		formatCents(ent.OneTimeAmountCents),
	)
	table.Render()
	return nil
}

func newAdminEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the webhook delivery audit log",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent webhook deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperatorStore(func(ctx context.Context, s *operatorStore) error {
				records, err := s.events.List(ctx, limit, offset)
				if err != nil {
					return err
				}
				return printEventRecords(records)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "number of deliveries to show")
	list.Flags().IntVar(&offset, "offset", 0, "number of deliveries to skip")

	get := &cobra.Command{
		Use:   "get <event-id>",
		Short: "Show one webhook delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperatorStore(func(ctx context.Context, s *operatorStore) error {
				rec, err := s.events.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printEventRecords([]*billing.EventRecord{rec})
			})
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func printEventRecords(records []*billing.EventRecord) error {
	if getOutputFormat() != "table" {
		return printOutput(records)
	}
	if len(records) == 0 {
		fmt.Println("No webhook deliveries recorded")
		return nil
	}
	table := NewTable("EVENT", "TYPE", "CUSTOMER", "USER", "OUTCOME", "RECEIVED", "ERROR")
	for _, rec := range records {
		received := rec.ReceivedAt
		table.AddRow(
			rec.EventID,
			rec.Type,
			rec.CustomerID,
			rec.UserID,
			formatStatus(rec.Outcome),
			formatTime(&received),
			truncate(rec.Error, 40),
		)
	}
	table.Render()
	return nil
}

func newAdminSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Resync every customer's subscription from the payment gateway once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperatorStore(func(ctx context.Context, s *operatorStore) error {
				report, err := s.syncSubscriptions(ctx)
				if err != nil {
					return err
				}
				if getOutputFormat() != "table" {
					return printOutput(report)
				}
				table := NewTable("CHECKED", "UPDATED", "CANCELED", "SKIPPED", "FAILED")
				table.AddRow(
					fmt.Sprint(report.Checked),
					fmt.Sprint(report.Updated),
					fmt.Sprint(report.Canceled),
					fmt.Sprint(report.Skipped),
					fmt.Sprint(report.Failed),
				)
				table.Render()
				return nil
			})
		},
	}
}
