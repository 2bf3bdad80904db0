package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, session_id, student_id, faculty_id, amount, scheduled_time,
	duration_minutes, topic, status, payment_status, meeting_link, notes, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Session) (*Session, error) {
	query := `
		INSERT INTO sessions (session_id, student_id, faculty_id, amount, scheduled_time,
			duration_minutes, topic, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', 'captured')
		RETURNING ` + sessionColumns

	var created Session
	err := r.db.GetContext(ctx, &created, query,
		s.SessionID, s.StudentID, s.FacultyID, s.Amount, s.ScheduledTime,
		s.DurationMinutes, s.Topic,
	)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`

	var s Session
	err := r.db.GetContext(ctx, &s, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

// TransitionStatus is the compare-and-swap guarding every status change.
// Meeting link and notes are only written when provided, so reject/cancel
// transitions leave them untouched.
func (r *repository) TransitionStatus(ctx context.Context, sessionID, from, to string, meetingLink, notes *string) (bool, error) {
	query := `
		UPDATE sessions
		SET status = $3,
		    meeting_link = COALESCE($4, meeting_link),
		    notes = COALESCE($5, notes),
		    updated_at = NOW()
		WHERE session_id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, from, to, meetingLink, notes)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *repository) SetPaymentStatus(ctx context.Context, sessionID, paymentStatus string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET payment_status = $2, updated_at = NOW() WHERE session_id = $1`,
		sessionID, paymentStatus,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE student_id = $1
		ORDER BY created_at DESC`

	var sessions []Session
	err := r.db.SelectContext(ctx, &sessions, query, studentID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *repository) ListByFaculty(ctx context.Context, facultyID int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE faculty_id = $1
		ORDER BY created_at DESC`

	var sessions []Session
	err := r.db.SelectContext(ctx, &sessions, query, facultyID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}
