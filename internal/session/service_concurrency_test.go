package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Kaushikmangukiya360/student-friend/internal/ledger"
)

// contendedLedger serializes balance movements on a mutex the way the real
// ledger serializes them on the wallet row lock, so concurrent debits see
// each other's committed effects.
type contendedLedger struct {
	mu      sync.Mutex
	balance decimal.Decimal
	applied map[string]decimal.Decimal
}

func newContendedLedger(balance decimal.Decimal) *contendedLedger {
	return &contendedLedger{balance: balance, applied: make(map[string]decimal.Decimal)}
}

func (l *contendedLedger) Debit(ctx context.Context, userID int, amount decimal.Decimal, purpose, referenceID string) (*ledger.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := referenceID + "|" + purpose
	if prior, ok := l.applied[key]; ok {
		if !prior.Equal(amount) {
			return nil, ledger.ErrDuplicateReference
		}
		return &ledger.Transaction{Kind: ledger.KindDebit, Purpose: purpose, ReferenceID: referenceID, Amount: amount, BalanceAfter: l.balance}, nil
	}
	if l.balance.LessThan(amount) {
		return nil, ledger.ErrInsufficientFunds
	}
	l.balance = l.balance.Sub(amount)
	l.applied[key] = amount
	return &ledger.Transaction{Kind: ledger.KindDebit, Purpose: purpose, ReferenceID: referenceID, Amount: amount, BalanceAfter: l.balance}, nil
}

func (l *contendedLedger) Credit(ctx context.Context, userID int, amount decimal.Decimal, purpose, referenceID string) (*ledger.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := referenceID + "|" + purpose
	if _, ok := l.applied[key]; !ok {
		l.balance = l.balance.Add(amount)
		l.applied[key] = amount
	}
	return &ledger.Transaction{Kind: ledger.KindCredit, Purpose: purpose, ReferenceID: referenceID, Amount: amount, BalanceAfter: l.balance}, nil
}

func (l *contendedLedger) RecordSettlement(ctx context.Context, userID int, amount decimal.Decimal, referenceID string) (*ledger.Transaction, error) {
	return &ledger.Transaction{Kind: ledger.KindCredit, Purpose: ledger.PurposeSessionSettlement, ReferenceID: referenceID, Amount: amount}, nil
}

func (l *contendedLedger) GetBalance(ctx context.Context, userID int) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, nil
}

func (l *contendedLedger) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]ledger.Transaction, error) {
	return nil, nil
}

type countingSessionRepo struct {
	mu      sync.Mutex
	created int
}

func (r *countingSessionRepo) Create(ctx context.Context, s *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	return s, nil
}

func (r *countingSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

func (r *countingSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	return nil, ErrSessionNotFound
}

func (r *countingSessionRepo) TransitionStatus(ctx context.Context, sessionID, from, to string, meetingLink, notes *string) (bool, error) {
	return false, nil
}

func (r *countingSessionRepo) SetPaymentStatus(ctx context.Context, sessionID, paymentStatus string) error {
	return nil
}

func (r *countingSessionRepo) ListByStudent(ctx context.Context, studentID int) ([]Session, error) {
	return nil, nil
}

func (r *countingSessionRepo) ListByFaculty(ctx context.Context, facultyID int) ([]Session, error) {
	return nil, nil
}

func TestService_CreateBooking_ConcurrentFullBalance(t *testing.T) {
	const workers = 8
	amount := decimal.RequireFromString("40.00")

	lg := newContendedLedger(amount)
	repo := &countingSessionRepo{}
	ur := new(MockUserRepo)
	ur.On("IsVerifiedFaculty", mock.Anything, 2).Return(true, nil)
	nt := new(MockNotifier)
	nt.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

	svc := NewService(repo, lg, ur, nt)

	req := CreateBookingRequest{
		FacultyID:       2,
		Amount:          amount,
		ScheduledTime:   time.Now().Add(24 * time.Hour),
		DurationMinutes: 60,
		Topic:           "Linear Algebra",
	}

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), 1, req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, rejected int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, 1, repo.count())

	balance, err := lg.GetBalance(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, balance.IsZero())
}
