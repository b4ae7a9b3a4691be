package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
)

// BillingEventRepository implements billing.EventLog
type BillingEventRepository struct {
	db *sql.DB
}

// NewBillingEventRepository creates a new webhook event log
func NewBillingEventRepository(db *sql.DB) billing.EventLog {
	return &BillingEventRepository{db: db}
}

// Record upserts the audit row for a delivery
func (r *BillingEventRepository) Record(ctx context.Context, rec *billing.EventRecord) error {
	defer observe("billing_events", "upsert", time.Now())

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO billing_events (event_id, type, customer_id, user_id, outcome, error, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			type = excluded.type,
			customer_id = excluded.customer_id,
			user_id = excluded.user_id,
			outcome = excluded.outcome,
			error = excluded.error,
			received_at = excluded.received_at
	`

	_, err := r.db.ExecContext(ctx, rebind(r.db, query),
		rec.EventID, rec.Type, emptyToNull(rec.CustomerID), emptyToNull(rec.UserID),
		rec.Outcome, emptyToNull(rec.Error), rec.ReceivedAt.Unix(),
	)
	if err != nil {
		return errors.DatabaseError("Failed to record billing event", err)
	}
	return nil
}

// Get retrieves the audit row for an event id
func (r *BillingEventRepository) Get(ctx context.Context, eventID string) (*billing.EventRecord, error) {
	defer observe("billing_events", "select", time.Now())

	query := `
		SELECT event_id, type, customer_id, user_id, outcome, error, received_at
		FROM billing_events WHERE event_id = ?
	`
	rec, err := scanEventRecord(r.db.QueryRowContext(ctx, rebind(r.db, query), eventID))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Billing event")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get billing event", err)
	}
	return rec, nil
}

// List returns the most recent deliveries first
func (r *BillingEventRepository) List(ctx context.Context, limit, offset int) ([]*billing.EventRecord, error) {
	defer observe("billing_events", "select", time.Now())

	query := `
		SELECT event_id, type, customer_id, user_id, outcome, error, received_at
		FROM billing_events
		ORDER BY received_at DESC, event_id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, rebind(r.db, query), limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list billing events", err)
	}
	defer rows.Close()

	var records []*billing.EventRecord
	for rows.Next() {
		rec, err := scanEventRecord(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan billing event", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate billing events", err)
	}
	return records, nil
}

func scanEventRecord(row rowScanner) (*billing.EventRecord, error) {
	var rec billing.EventRecord
	var customerID, userID, errMsg sql.NullString
	var receivedAt int64

	if err := row.Scan(&rec.EventID, &rec.Type, &customerID, &userID, &rec.Outcome, &errMsg, &receivedAt); err != nil {
		return nil, err
	}
	rec.CustomerID = customerID.String
	rec.UserID = userID.String
	rec.Error = errMsg.String
	rec.ReceivedAt = time.Unix(receivedAt, 0).UTC()
	return &rec, nil
}
