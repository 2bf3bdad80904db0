package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger is the only component allowed to mutate wallet balances.
type Ledger interface {
	Debit(ctx context.Context, userID int, amount decimal.Decimal, purpose, referenceID string) (*Transaction, error)
	Credit(ctx context.Context, userID int, amount decimal.Decimal, purpose, referenceID string) (*Transaction, error)
	RecordSettlement(ctx context.Context, userID int, amount decimal.Decimal, referenceID string) (*Transaction, error)
	GetBalance(ctx context.Context, userID int) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
}
