package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kaushikmangukiya360/student-friend/internal/ledger"
	"github.com/Kaushikmangukiya360/student-friend/internal/metrics"
	"github.com/Kaushikmangukiya360/student-friend/internal/notifier"
	"github.com/Kaushikmangukiya360/student-friend/internal/user"
)

var (
	ErrNotAuthorized          = errors.New("not authorized for this session")
	ErrInvalidStateTransition = errors.New("session is not in the expected state")
	ErrInvalidAmount          = errors.New("session amount must be positive")
	ErrScheduledInPast        = errors.New("cannot book a session in the past")

	// ErrInsufficientFunds is the ledger sentinel, re-exported so handlers
	// only need this package.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
)

type Service interface {
	CreateBooking(ctx context.Context, studentID int, req CreateBookingRequest) (*Session, error)
	DecideBooking(ctx context.Context, sessionID string, actorID int, req DecisionRequest) (*Session, error)
	CompleteSession(ctx context.Context, sessionID string, actorID int) (*Session, error)
	CancelSession(ctx context.Context, sessionID string, actorID int) (*Session, error)
	ListForStudent(ctx context.Context, studentID int) ([]Session, error)
	ListForFaculty(ctx context.Context, facultyID int) ([]Session, error)
}

type service struct {
	repo     Repository
	ledger   ledger.Ledger
	userRepo user.Repository
	notifier notifier.Notifier
}

func NewService(repo Repository, ldg ledger.Ledger, userRepo user.Repository, n notifier.Notifier) Service {
	return &service{
		repo:     repo,
		ledger:   ldg,
		userRepo: userRepo,
		notifier: n,
	}
}

func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateBooking debits the student first and only then inserts the session
// row, so a pending session without captured funds can never exist. If the
// insert fails after the debit committed, the debit is compensated.
func (s *service) CreateBooking(ctx context.Context, studentID int, req CreateBookingRequest) (*Session, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.ScheduledTime.Before(time.Now()) {
		return nil, ErrScheduledInPast
	}
	if req.FacultyID == studentID {
		return nil, ErrNotAuthorized
	}

	verified, err := s.userRepo.IsVerifiedFaculty(ctx, req.FacultyID)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrNotAuthorized
	}

	sessionID := newSessionID()

	if _, err := s.ledger.Debit(ctx, studentID, req.Amount, ledger.PurposeSessionDebit, sessionID); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			metrics.RecordBooking("insufficient_funds")
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Session{
		SessionID:       sessionID,
		StudentID:       studentID,
		FacultyID:       req.FacultyID,
		Amount:          req.Amount,
		ScheduledTime:   req.ScheduledTime,
		DurationMinutes: req.DurationMinutes,
		Topic:           req.Topic,
	})
	if err != nil {
		// Roll the captured funds back; the refund shares the session id key
		// so a retried create cannot double-compensate.
		if _, refundErr := s.ledger.Credit(ctx, studentID, req.Amount, ledger.PurposeSessionRefund, sessionID); refundErr != nil {
			return nil, fmt.Errorf("session insert failed: %w (compensating refund also failed: %v)", err, refundErr)
		}
		return nil, err
	}

	metrics.RecordBooking("created")
	s.notifier.Notify(ctx, req.FacultyID, "session_requested",
		fmt.Sprintf("New session booking request for %s", created.Topic))

	return created, nil
}

// DecideBooking applies the faculty's accept/reject decision. A duplicate
// decision on an already-decided session is a no-op that returns the current
// row, so at-least-once delivery is safe.
func (s *service) DecideBooking(ctx context.Context, sessionID string, actorID int, req DecisionRequest) (*Session, error) {
	sess, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.FacultyID != actorID {
		return nil, ErrNotAuthorized
	}

	if sess.Status != StatusPending {
		// Tolerate retries; finish a refund a crashed reject left behind.
		if sess.Status == StatusRejected && sess.PaymentStatus == PaymentCaptured {
			if err := s.refund(ctx, sess); err != nil {
				return nil, err
			}
			return s.repo.GetBySessionID(ctx, sessionID)
		}
		return sess, nil
	}

	switch req.Decision {
	case DecisionAccept:
		won, err := s.repo.TransitionStatus(ctx, sessionID, StatusPending, StatusAccepted, req.MeetingLink, req.Notes)
		if err != nil {
			return nil, err
		}
		if won {
			metrics.RecordBookingDecision(DecisionAccept)
			s.notifier.Notify(ctx, sess.StudentID, "session_accepted",
				fmt.Sprintf("Your session request for %s was accepted", sess.Topic))
		}
	case DecisionReject:
		won, err := s.repo.TransitionStatus(ctx, sessionID, StatusPending, StatusRejected, nil, nil)
		if err != nil {
			return nil, err
		}
		if won {
			if err := s.refund(ctx, sess); err != nil {
				return nil, err
			}
			metrics.RecordBookingDecision(DecisionReject)
			s.notifier.Notify(ctx, sess.StudentID, "session_rejected",
				fmt.Sprintf("Your session request for %s was declined and refunded", sess.Topic))
		}
	default:
		return nil, fmt.Errorf("unknown decision %q", req.Decision)
	}

	return s.repo.GetBySessionID(ctx, sessionID)
}

// CompleteSession marks an accepted session as held and settles the captured
// funds. Settlement moves no balance; it records the amount as earned.
func (s *service) CompleteSession(ctx context.Context, sessionID string, actorID int) (*Session, error) {
	sess, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.FacultyID != actorID {
		return nil, ErrNotAuthorized
	}

	switch sess.Status {
	case StatusAccepted:
		won, err := s.repo.TransitionStatus(ctx, sessionID, StatusAccepted, StatusCompleted, nil, nil)
		if err != nil {
			return nil, err
		}
		if !won {
			// Lost the race; if a concurrent complete won it, treat this call
			// as a retry instead of failing on timing.
			cur, err := s.repo.GetBySessionID(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if cur.Status != StatusCompleted {
				return nil, ErrInvalidStateTransition
			}
			if cur.PaymentStatus != PaymentSettled {
				if err := s.settle(ctx, cur); err != nil {
					return nil, err
				}
			}
			return s.repo.GetBySessionID(ctx, sessionID)
		}
		if err := s.settle(ctx, sess); err != nil {
			return nil, err
		}
		s.notifier.Notify(ctx, sess.StudentID, "session_completed",
			fmt.Sprintf("Your session on %s was marked as completed", sess.Topic))
	case StatusCompleted:
		// Retried completion; finish settlement if a crash interrupted it.
		if sess.PaymentStatus != PaymentSettled {
			if err := s.settle(ctx, sess); err != nil {
				return nil, err
			}
		}
	default:
		return nil, ErrInvalidStateTransition
	}

	return s.repo.GetBySessionID(ctx, sessionID)
}

// CancelSession lets the requesting student back out. Pending sessions always
// refund; accepted sessions refund only before the scheduled start.
func (s *service) CancelSession(ctx context.Context, sessionID string, actorID int) (*Session, error) {
	sess, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.StudentID != actorID {
		return nil, ErrNotAuthorized
	}

	switch sess.Status {
	case StatusPending, StatusAccepted:
		if sess.Status == StatusAccepted && !time.Now().Before(sess.ScheduledTime) {
			return nil, ErrInvalidStateTransition
		}
		won, err := s.repo.TransitionStatus(ctx, sessionID, sess.Status, StatusCancelled, nil, nil)
		if err != nil {
			return nil, err
		}
		if won {
			if err := s.refund(ctx, sess); err != nil {
				return nil, err
			}
			metrics.RecordSessionCancellation()
			s.notifier.Notify(ctx, sess.FacultyID, "session_cancelled",
				fmt.Sprintf("The session on %s was cancelled by the student", sess.Topic))
		}
	case StatusCancelled:
		// Retried cancel; finish the refund if it never landed.
		if sess.PaymentStatus == PaymentCaptured {
			if err := s.refund(ctx, sess); err != nil {
				return nil, err
			}
		}
	default:
		return nil, ErrInvalidStateTransition
	}

	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *service) ListForStudent(ctx context.Context, studentID int) ([]Session, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

func (s *service) ListForFaculty(ctx context.Context, facultyID int) ([]Session, error) {
	return s.repo.ListByFaculty(ctx, facultyID)
}

// refund credits the captured amount back to the student. The credit is keyed
// by the session id, so replays are absorbed by the ledger.
func (s *service) refund(ctx context.Context, sess *Session) error {
	if _, err := s.ledger.Credit(ctx, sess.StudentID, sess.Amount, ledger.PurposeSessionRefund, sess.SessionID); err != nil {
		return err
	}
	return s.repo.SetPaymentStatus(ctx, sess.SessionID, PaymentRefunded)
}

func (s *service) settle(ctx context.Context, sess *Session) error {
	if _, err := s.ledger.RecordSettlement(ctx, sess.FacultyID, sess.Amount, sess.SessionID); err != nil {
		return err
	}
	return s.repo.SetPaymentStatus(ctx, sess.SessionID, PaymentSettled)
}
