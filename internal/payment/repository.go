package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, payment_id, order_id, user_id, amount, purpose, status,
	metadata, created_at, expires_at, verified_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	query := `
		INSERT INTO payments (payment_id, order_id, user_id, amount, purpose, metadata, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + paymentColumns

	var created Payment
	err := r.db.GetContext(ctx, &created, query,
		p.PaymentID, p.OrderID, p.UserID, p.Amount, p.Purpose, p.Metadata, p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *repository) MarkVerified(ctx context.Context, paymentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'verified', verified_at = NOW()
		WHERE payment_id = $1 AND status = 'initiated'
	`, paymentID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *repository) SetStatus(ctx context.Context, paymentID, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $2 WHERE payment_id = $1`,
		paymentID, status,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]Payment, error) {
	if limit <= 0 {
		limit = 20
	}

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
