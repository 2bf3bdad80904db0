package payment

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

const (
	StatusInitiated = "initiated"
	StatusVerified  = "verified"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Payment is the opaque top-up handle the caller completes with the external
// settlement provider. Only Verify ever produces a wallet_topup transaction.
type Payment struct {
	ID         int             `db:"id" json:"-"`
	PaymentID  string          `db:"payment_id" json:"payment_id"`
	OrderID    string          `db:"order_id" json:"order_id"`
	UserID     int             `db:"user_id" json:"user_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Purpose    string          `db:"purpose" json:"purpose"`
	Status     string          `db:"status" json:"status"`
	Metadata   types.JSONText  `db:"metadata" json:"metadata"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time       `db:"expires_at" json:"expires_at"`
	VerifiedAt *time.Time      `db:"verified_at" json:"verified_at,omitempty"`
}

type InitiateRequest struct {
	Amount   decimal.Decimal        `json:"amount" binding:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type InitiateResponse struct {
	PaymentID string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	KeyID     string          `json:"key_id"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type VerifyRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}
