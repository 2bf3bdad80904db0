package session

import "context"

type Repository interface {
	Create(ctx context.Context, s *Session) (*Session, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Session, error)
	// TransitionStatus flips status from `from` to `to` in a single
	// conditional update and reports whether the transition won.
	TransitionStatus(ctx context.Context, sessionID, from, to string, meetingLink, notes *string) (bool, error)
	SetPaymentStatus(ctx context.Context, sessionID, paymentStatus string) error
	ListByStudent(ctx context.Context, studentID int) ([]Session, error)
	ListByFaculty(ctx context.Context, facultyID int) ([]Session, error)
}
