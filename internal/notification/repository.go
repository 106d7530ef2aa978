package notification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DeliveryLog records send attempts. The facade works without one.
type DeliveryLog interface {
	Create(ctx context.Context, rec *DeliveryRecord) error
	UpdateStatus(ctx context.Context, id string, status Status, providerID, errMsg string) error
}

// Repository stores delivery records in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending delivery record, assigning its ID and timestamp.
func (r *Repository) Create(ctx context.Context, rec *DeliveryRecord) error {
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()
	rec.Status = StatusPending

	query := `
		INSERT INTO email_deliveries (id, kind, recipient, subject, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Kind, rec.Recipient, rec.Subject, rec.Status, rec.CreatedAt,
	)
	return err
}

// UpdateStatus sets the outcome of a delivery; sent_at is filled only on success.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status, providerID, errMsg string) error {
	var sentAt *time.Time
	if status == StatusSent {
		now := time.Now().UTC()
		sentAt = &now
	}

	query := `
		UPDATE email_deliveries
		SET status = $1, provider_id = $2, error = $3, sent_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, nullString(providerID), nullString(errMsg), sentAt, id)
	return err
}

// GetByID returns nil, nil when the record does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*DeliveryRecord, error) {
	query := `
		SELECT id, kind, recipient, subject, status, provider_id, error, created_at, sent_at
		FROM email_deliveries WHERE id = $1
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByRecipient returns the most recent deliveries to an address, newest first.
func (r *Repository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, recipient, subject, status, provider_id, error, created_at, sent_at
		FROM email_deliveries WHERE recipient = $1 ORDER BY created_at DESC LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*DeliveryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*DeliveryRecord, error) {
	var (
		rec        DeliveryRecord
		providerID sql.NullString
		errMsg     sql.NullString
		sentAt     sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.Recipient, &rec.Subject, &rec.Status,
		&providerID, &errMsg, &rec.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	rec.ProviderID = providerID.String
	rec.Error = errMsg.String
	if sentAt.Valid {
		t := sentAt.Time
		rec.SentAt = &t
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
