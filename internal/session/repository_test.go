package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupSessionMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "session_id", "student_id", "faculty_id", "amount", "scheduled_time",
		"duration_minutes", "topic", "status", "payment_status", "meeting_link", "notes",
		"created_at", "updated_at",
	})
}

func TestRepository_Create(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	scheduled := time.Now().Add(24 * time.Hour)

	mock.ExpectQuery("INSERT INTO sessions").
		WillReturnRows(sessionRows().AddRow(
			1, "sess_abc123def456", 1, 2, "25.00", scheduled,
			60, "Linear Algebra", StatusPending, PaymentCaptured, nil, nil,
			time.Now(), time.Now(),
		))

	created, err := repo.Create(context.Background(), &Session{
		SessionID:       "sess_abc123def456",
		StudentID:       1,
		FacultyID:       2,
		ScheduledTime:   scheduled,
		DurationMinutes: 60,
		Topic:           "Linear Algebra",
	})

	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, PaymentCaptured, created.PaymentStatus)
}

func TestRepository_GetBySessionID_NotFound(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery("SELECT").
		WithArgs("sess_missing00000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySessionID(context.Background(), "sess_missing00000")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRepository_TransitionStatus_Won(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectExec("UPDATE sessions").
		WithArgs("sess_abc123def456", StatusPending, StatusAccepted, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.TransitionStatus(context.Background(), "sess_abc123def456", StatusPending, StatusAccepted, nil, nil)
	require.NoError(t, err)
	require.True(t, won)
}

func TestRepository_TransitionStatus_Lost(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	// Another writer already moved the row out of pending.
	mock.ExpectExec("UPDATE sessions").
		WithArgs("sess_abc123def456", StatusPending, StatusRejected, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.TransitionStatus(context.Background(), "sess_abc123def456", StatusPending, StatusRejected, nil, nil)
	require.NoError(t, err)
	require.False(t, won)
}

func TestRepository_SetPaymentStatus_NotFound(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectExec("UPDATE sessions SET payment_status").
		WithArgs("sess_missing00000", PaymentRefunded).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetPaymentStatus(context.Background(), "sess_missing00000", PaymentRefunded)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRepository_ListByStudent(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery("SELECT").
		WithArgs(1).
		WillReturnRows(sessionRows().
			AddRow(2, "sess_222222222222", 1, 3, "30.00", time.Now().Add(48*time.Hour),
				90, "Statistics", StatusAccepted, PaymentCaptured, nil, nil, time.Now(), time.Now()).
			AddRow(1, "sess_111111111111", 1, 2, "25.00", time.Now().Add(24*time.Hour),
				60, "Linear Algebra", StatusPending, PaymentCaptured, nil, nil, time.Now(), time.Now()))

	sessions, err := repo.ListByStudent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, StatusAccepted, sessions[0].Status)
}
