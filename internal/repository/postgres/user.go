package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
)

const userColumns = `id, email, first_name, last_name, processor_customer_id, plan,
	subscription_status, current_period_end, one_time_amount_cents, one_time_granted_at,
	entitlement_event_at, created_at, updated_at`

// UserRepository implements user.Repository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) user.Repository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var firstName, lastName, customerID, status sql.NullString
	var periodEnd, amount, grantedAt, eventAt sql.NullInt64
	var plan string
	var createdAt, updatedAt int64

	err := row.Scan(
		&u.ID, &u.Email, &firstName, &lastName, &customerID, &plan,
		&status, &periodEnd, &amount, &grantedAt,
		&eventAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.ProcessorCustomerID = stringPtr(customerID)
	u.Plan = user.Plan(plan)
	u.SubscriptionStatus = stringPtr(status)
	u.CurrentPeriodEnd = timePtr(periodEnd)
	u.OneTimeAmount = int64Ptr(amount)
	u.OneTimeGrantedAt = timePtr(grantedAt)
	u.EventAt = timePtr(eventAt)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &u, nil
}

// Create creates a new user with a free plan unless one is set
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	defer observe("users", "insert", time.Now())

	now := time.Now().UTC().Truncate(time.Second)
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Plan == "" {
		u.Plan = user.PlanFree
	}

	query := `
		INSERT INTO users (id, email, first_name, last_name, processor_customer_id, plan,
			subscription_status, current_period_end, one_time_amount_cents, one_time_granted_at,
			entitlement_event_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, rebind(r.db, query),
		u.ID, u.Email, emptyToNull(u.FirstName), emptyToNull(u.LastName),
		nullString(u.ProcessorCustomerID), string(u.Plan),
		nullString(u.SubscriptionStatus), nullUnix(u.CurrentPeriodEnd),
		nullInt64(u.OneTimeAmount), nullUnix(u.OneTimeGrantedAt),
		nullUnix(u.EventAt), now.Unix(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("User already exists")
		}
		return errors.DatabaseError("Failed to create user", err)
	}

	return nil
}

// Upsert creates the user or refreshes email and names of an existing row
func (r *UserRepository) Upsert(ctx context.Context, u *user.User) (*user.User, error) {
	defer observe("users", "upsert", time.Now())

	now := time.Now().UTC().Unix()
	query := `
		INSERT INTO users (id, email, first_name, last_name, plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at
		RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, rebind(r.db, query),
		u.ID, u.Email, emptyToNull(u.FirstName), emptyToNull(u.LastName),
		string(user.PlanFree), now, now,
	)
	out, err := scanUser(row)
	if err != nil {
		return nil, errors.DatabaseError("Failed to upsert user", err)
	}
	return out, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "email", email)
}

// GetByProcessorCustomerID retrieves the user owning a processor customer id
func (r *UserRepository) GetByProcessorCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	if customerID == "" {
		return nil, errors.NotFound("User")
	}
	return r.getOne(ctx, "processor_customer_id", customerID)
}

func (r *UserRepository) getOne(ctx context.Context, column, value string) (*user.User, error) {
	defer observe("users", "select", time.Now())

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? LIMIT 1`

	u, err := scanUser(r.db.QueryRowContext(ctx, rebind(r.db, query), value))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}
	return u, nil
}

// UpdateEntitlement writes the set fields of patch in a single UPDATE and
// returns the resulting row
func (r *UserRepository) UpdateEntitlement(ctx context.Context, id string, patch user.EntitlementPatch) (*user.User, error) {
	defer observe("users", "update_entitlement", time.Now())

	var sets []string
	var args []any

	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if f := patch.ProcessorCustomerID; f.Set {
		add("processor_customer_id", nullString(f.Value))
	}
	if f := patch.Plan; f.Set {
		plan := user.PlanFree
		if f.Value != nil {
			plan = *f.Value
		}
		add("plan", string(plan))
	}
	if f := patch.SubscriptionStatus; f.Set {
		add("subscription_status", nullString(f.Value))
	}
	if f := patch.CurrentPeriodEnd; f.Set {
		add("current_period_end", nullUnix(f.Value))
	}
	if f := patch.OneTimeAmount; f.Set {
		add("one_time_amount_cents", nullInt64(f.Value))
	}
	if f := patch.OneTimeGrantedAt; f.Set {
		add("one_time_granted_at", nullUnix(f.Value))
	}
	if f := patch.EventAt; f.Set {
		add("entitlement_event_at", nullUnix(f.Value))
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	add("updated_at", time.Now().UTC().Unix())
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, rebind(r.db, query), args...))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict("Processor customer already linked to another user")
		}
		return nil, errors.DatabaseError("Failed to update entitlement", err)
	}
	return u, nil
}

// Update updates profile columns
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	defer observe("users", "update", time.Now())

	u.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE users
		SET email = ?, first_name = ?, last_name = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, rebind(r.db, query),
		u.Email, emptyToNull(u.FirstName), emptyToNull(u.LastName), u.UpdatedAt.Unix(), u.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}

	if rows == 0 {
		return errors.NotFound("User")
	}

	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	defer observe("users", "delete", time.Now())

	result, err := r.db.ExecContext(ctx, rebind(r.db, `DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return errors.DatabaseError("Failed to delete user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}

	if rows == 0 {
		return errors.NotFound("User")
	}

	return nil
}

// List retrieves all users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count users", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	users, err := r.query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListWithProcessorCustomer pages through users that have a processor customer id
func (r *UserRepository) ListWithProcessorCustomer(ctx context.Context, limit, offset int) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE processor_customer_id IS NOT NULL
		ORDER BY id LIMIT ? OFFSET ?`
	return r.query(ctx, query, limit, offset)
}

func (r *UserRepository) query(ctx context.Context, query string, args ...any) ([]*user.User, error) {
	defer observe("users", "select", time.Now())

	rows, err := r.db.QueryContext(ctx, rebind(r.db, query), args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list users", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan user", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate users", err)
	}

	return users, nil
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
