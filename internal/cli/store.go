package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/providers"
	"github.com/pratik-mahalle/jobtrail/internal/repository/postgres"
	"github.com/pratik-mahalle/jobtrail/internal/services"
	"github.com/pratik-mahalle/jobtrail/internal/worker"
	"github.com/pratik-mahalle/jobtrail/migrations"
)

// operatorStore gives operator commands direct access to the server's database,
// configured from the same environment variables as the API
type operatorStore struct {
	cfg    *config.Config
	db     *sql.DB
	users  user.Repository
	events billing.EventLog
	logger *logger.Logger
}

func loadServerConfig() *config.Config {
	_ = godotenv.Load()
	return config.FromEnv()
}

func openOperatorStore(cfg *config.Config, log *logger.Logger) (*operatorStore, error) {
	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &operatorStore{
		cfg:    cfg,
		db:     db,
		users:  postgres.NewUserRepository(db),
		events: postgres.NewBillingEventRepository(db),
		logger: log,
	}, nil
}

func (s *operatorStore) Close() error {
	return s.db.Close()
}

func (s *operatorStore) migrate() (int, error) {
	return postgres.RunMigrations(s.db, migrations.GetFS())
}

func (s *operatorStore) pendingMigrations() ([]string, error) {
	return postgres.PendingMigrations(s.db, migrations.GetFS())
}

func (s *operatorStore) reconciler() *services.BillingService {
	return services.NewBillingService(s.users, s.cfg.Billing, s.logger)
}

func (s *operatorStore) grantZero(ctx context.Context, userID string) (*user.User, error) {
	return s.reconciler().GrantZeroAmount(ctx, userID)
}

func (s *operatorStore) syncSubscriptions(ctx context.Context) (*worker.SyncReport, error) {
	if !s.cfg.Billing.PaymentsEnabled {
		return nil, fmt.Errorf("payments are disabled: set PAYMENTS_ENABLED=true to resync subscriptions")
	}
	if err := s.cfg.Billing.Validate(); err != nil {
		return nil, err
	}
	gateway := providers.NewGateway(s.cfg.Billing, s.logger)
	syncer := worker.NewSubscriptionSyncer(s.users, gateway, s.reconciler(), "", s.logger)
	return syncer.RunOnce(ctx)
}

// withOperatorStore opens the store for the duration of fn. Service logs go
// to stderr so command output stays parseable.
func withOperatorStore(fn func(ctx context.Context, s *operatorStore) error) error {
	cfg := loadServerConfig()
	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     "console",
		OutputPath: "stderr",
	})

	store, err := openOperatorStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(context.Background(), store)
}

