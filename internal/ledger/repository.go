package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Kaushikmangukiya360/student-friend/internal/metrics"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrDuplicateReference = errors.New("reference id reused with different amount or kind")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidPurpose     = errors.New("unknown transaction purpose")
	ErrServiceUnavailable = errors.New("ledger temporarily unavailable")
)

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Ledger {
	return &repository{db: db}
}

// Debit atomically checks the balance, decrements it and appends a debit
// transaction. A replay with the same (referenceID, purpose) returns the
// stored transaction without side effects.
func (r *repository) Debit(ctx context.Context, userID int, amount decimal.Decimal, purpose, referenceID string) (*Transaction, error) {
	return r.apply(ctx, userID, amount, KindDebit, purpose, referenceID, true)
}

// Credit atomically increments the balance and appends a credit transaction,
// with the same idempotency rule as Debit.
func (r *repository) Credit(ctx context.Context, userID int, amount decimal.Decimal, purpose, referenceID string) (*Transaction, error) {
	return r.apply(ctx, userID, amount, KindCredit, purpose, referenceID, true)
}

// RecordSettlement appends a session_settlement bookkeeping entry for the
// provider without moving any balance. Settlement is status-only in this
// subsystem; the actual payout happens on an external rail.
func (r *repository) RecordSettlement(ctx context.Context, userID int, amount decimal.Decimal, referenceID string) (*Transaction, error) {
	return r.apply(ctx, userID, amount, KindCredit, PurposeSessionSettlement, referenceID, false)
}

func (r *repository) apply(ctx context.Context, userID int, amount decimal.Decimal, kind, purpose, referenceID string, moveBalance bool) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validPurpose(purpose) {
		return nil, ErrInvalidPurpose
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff << attempt):
			}
		}

		txn, err := r.applyOnce(ctx, userID, amount, kind, purpose, referenceID, moveBalance)
		if err == nil {
			metrics.RecordLedgerTransaction(kind, purpose)
			return txn, nil
		}
		if !isRetryable(err) {
			if errors.Is(err, ErrInsufficientFunds) {
				metrics.RecordInsufficientFunds()
			}
			return nil, err
		}
		lastErr = err
	}

	return nil, errors.Join(ErrServiceUnavailable, lastErr)
}

func (r *repository) applyOnce(ctx context.Context, userID int, amount decimal.Decimal, kind, purpose, referenceID string, moveBalance bool) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Idempotent replay: an existing entry under the same key short-circuits
	// before any row is locked.
	existing, err := findByKeyTx(ctx, tx, referenceID, purpose)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return replay(existing, amount, kind)
	}

	var balance decimal.Decimal
	err = tx.QueryRowxContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	newBalance := balance
	if moveBalance {
		if kind == KindDebit {
			if balance.LessThan(amount) {
				return nil, ErrInsufficientFunds
			}
			newBalance = balance.Sub(amount)
		} else {
			newBalance = balance.Add(amount)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET wallet_balance = $1 WHERE id = $2`,
			newBalance, userID,
		)
		if err != nil {
			return nil, err
		}
	}

	var txn Transaction
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO transactions (user_id, amount, kind, purpose, reference_id, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, amount, kind, purpose, reference_id, balance_after, created_at`,
		userID, amount, kind, purpose, referenceID, newBalance,
	).StructScan(&txn)
	if err != nil {
		// A concurrent writer may have landed the same key first; surface it
		// as a replay instead of an error.
		if isUniqueViolation(err) {
			if prior, lookupErr := r.findByKey(ctx, referenceID, purpose); lookupErr == nil && prior != nil {
				return replay(prior, amount, kind)
			}
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &txn, nil
}

// replay enforces the idempotency contract: same key with the same amount and
// kind is a no-op returning the prior result, anything else is a client bug.
func replay(prior *Transaction, amount decimal.Decimal, kind string) (*Transaction, error) {
	if prior.Kind != kind || !prior.Amount.Equal(amount) {
		return nil, ErrDuplicateReference
	}
	return prior, nil
}

func (r *repository) GetBalance(ctx context.Context, userID int) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, `SELECT wallet_balance FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}

	return balance, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, amount, kind, purpose, reference_id, balance_after, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

func (r *repository) findByKey(ctx context.Context, referenceID, purpose string) (*Transaction, error) {
	var txn Transaction
	err := r.db.GetContext(ctx, &txn, `
		SELECT id, user_id, amount, kind, purpose, reference_id, balance_after, created_at
		FROM transactions
		WHERE reference_id = $1 AND purpose = $2
	`, referenceID, purpose)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func findByKeyTx(ctx context.Context, tx *sqlx.Tx, referenceID, purpose string) (*Transaction, error) {
	var txn Transaction
	err := tx.GetContext(ctx, &txn, `
		SELECT id, user_id, amount, kind, purpose, reference_id, balance_after, created_at
		FROM transactions
		WHERE reference_id = $1 AND purpose = $2
	`, referenceID, purpose)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// isRetryable reports whether the error is transient lock contention
// (serialization failure or deadlock) worth another attempt.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
