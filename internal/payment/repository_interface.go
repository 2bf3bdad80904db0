package payment

import "context"

type Repository interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	// MarkVerified flips status from initiated to verified and reports
	// whether this call won the transition.
	MarkVerified(ctx context.Context, paymentID string) (bool, error)
	SetStatus(ctx context.Context, paymentID, status string) error
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]Payment, error)
}
