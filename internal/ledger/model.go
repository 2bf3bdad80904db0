package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindCredit = "credit"
	KindDebit  = "debit"
)

// Transaction purposes form a closed set. Adding a purpose is a code change,
// a migration of the CHECK constraint included.
const (
	PurposeWalletTopup       = "wallet_topup"
	PurposeSessionDebit      = "session_debit"
	PurposeSessionRefund     = "session_refund"
	PurposeSessionSettlement = "session_settlement"
)

// Transaction is an immutable, append-only ledger record. The pair
// (reference_id, purpose) is unique and acts as the idempotency key.
type Transaction struct {
	ID           int             `db:"id" json:"id"`
	UserID       int             `db:"user_id" json:"user_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Kind         string          `db:"kind" json:"kind"`
	Purpose      string          `db:"purpose" json:"purpose"`
	ReferenceID  string          `db:"reference_id" json:"reference_id"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func validPurpose(purpose string) bool {
	switch purpose {
	case PurposeWalletTopup, PurposeSessionDebit, PurposeSessionRefund, PurposeSessionSettlement:
		return true
	}
	return false
}
