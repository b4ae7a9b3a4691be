package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Apply the embedded schema migrations to the database configured by DB_DRIVER and related variables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperatorStore(func(ctx context.Context, s *operatorStore) error {
				if status {
					pending, err := s.pendingMigrations()
					if err != nil {
						return err
					}
					if len(pending) == 0 {
						fmt.Println("Database is up to date")
						return nil
					}
					for _, name := range pending {
						fmt.Printf("pending: %s\n", name)
					}
					return nil
				}

				applied, err := s.migrate()
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) on %s\n", applied, s.cfg.Database.Driver)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "list pending migrations without applying them")
	return cmd
}
