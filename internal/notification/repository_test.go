package notification

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deliveryColumns = []string{"id", "kind", "recipient", "subject", "status", "provider_id", "error", "created_at", "sent_at"}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO email_deliveries").
		WithArgs(sqlmock.AnyArg(), KindWelcome, "sam@example.com", "Welcome", StatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &DeliveryRecord{Kind: KindWelcome, Recipient: "sam@example.com", Subject: "Welcome"}
	require.NoError(t, repo.Create(context.Background(), rec))

	assert.Len(t, rec.ID, 36)
	assert.Equal(t, StatusPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		providerID string
		errMsg     string
		sentAt     any
	}{
		{name: "sent", status: StatusSent, providerID: "re_1", sentAt: sqlmock.AnyArg()},
		{name: "failed", status: StatusFailed, errMsg: "boom", sentAt: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectExec("UPDATE email_deliveries").
				WithArgs(tt.status,
					sql.NullString{String: tt.providerID, Valid: tt.providerID != ""},
					sql.NullString{String: tt.errMsg, Valid: tt.errMsg != ""},
					tt.sentAt, "rec_1").
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, repo.UpdateStatus(context.Background(), "rec_1", tt.status, tt.providerID, tt.errMsg))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
	sent := created.Add(time.Second)

	mock.ExpectQuery("SELECT (.+) FROM email_deliveries WHERE id = \\$1").
		WithArgs("rec_1").
		WillReturnRows(sqlmock.NewRows(deliveryColumns).
			AddRow("rec_1", "welcome", "sam@example.com", "Welcome", "sent", "re_1", nil, created, sent))

	rec, err := repo.GetByID(context.Background(), "rec_1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, KindWelcome, rec.Kind)
	assert.Equal(t, StatusSent, rec.Status)
	assert.Equal(t, "re_1", rec.ProviderID)
	assert.Empty(t, rec.Error)
	require.NotNil(t, rec.SentAt)
	assert.Equal(t, sent, *rec.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery("SELECT (.+) FROM email_deliveries").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(deliveryColumns))

	rec, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRepositoryListByRecipient(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM email_deliveries WHERE recipient = \\$1 ORDER BY created_at DESC LIMIT \\$2").
		WithArgs("sam@example.com", 50).
		WillReturnRows(sqlmock.NewRows(deliveryColumns).
			AddRow("rec_2", "payment_failed", "sam@example.com", "Payment failed", "failed", nil, "declined", created.Add(time.Hour), nil).
			AddRow("rec_1", "welcome", "sam@example.com", "Welcome", "sent", "re_1", nil, created, created))

	records, err := repo.ListByRecipient(context.Background(), "sam@example.com", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec_2", records[0].ID)
	assert.Equal(t, "declined", records[0].Error)
	assert.Nil(t, records[0].SentAt)
	assert.Equal(t, "rec_1", records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListByRecipientQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByRecipient(context.Background(), "sam@example.com", 10)
	assert.EqualError(t, err, "connection reset")
}
