package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kaushikmangukiya360/student-friend/internal/ledger"
	"github.com/Kaushikmangukiya360/student-friend/internal/metrics"
	"github.com/Kaushikmangukiya360/student-friend/internal/notifier"
)

var (
	ErrVerificationFailed = errors.New("payment signature verification failed")
	ErrPaymentExpired     = errors.New("payment has expired")
	ErrInvalidAmount      = errors.New("top-up amount must be positive")
	ErrHandleMismatch     = errors.New("order id does not match payment")
)

// Payments expire 30 minutes after initiation; the external provider is
// expected to complete well within that window.
const paymentTTL = 30 * time.Minute

type Service interface {
	Initiate(ctx context.Context, userID int, amount decimal.Decimal, metadata map[string]interface{}) (*InitiateResponse, error)
	Verify(ctx context.Context, paymentID, orderID, signature string) (*Payment, error)
	History(ctx context.Context, userID int, limit, offset int) ([]Payment, error)
}

type service struct {
	repo     Repository
	ledger   ledger.Ledger
	notifier notifier.Notifier

	keyID  string
	secret string
}

func NewService(repo Repository, ldg ledger.Ledger, n notifier.Notifier, keyID, secret string) Service {
	return &service{
		repo:     repo,
		ledger:   ldg,
		notifier: n,
		keyID:    keyID,
		secret:   secret,
	}
}

func newHandle(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (s *service) Initiate(ctx context.Context, userID int, amount decimal.Decimal, metadata map[string]interface{}) (*InitiateResponse, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Payment{
		PaymentID: newHandle("pay"),
		OrderID:   newHandle("order"),
		UserID:    userID,
		Amount:    amount,
		Purpose:   ledger.PurposeWalletTopup,
		Metadata:  metadataJSON,
		ExpiresAt: time.Now().Add(paymentTTL),
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentInitiated()

	return &InitiateResponse{
		PaymentID: created.PaymentID,
		OrderID:   created.OrderID,
		Amount:    created.Amount,
		KeyID:     s.keyID,
		ExpiresAt: created.ExpiresAt,
	}, nil
}

// Verify validates the handle pair and signature, then credits the wallet.
// A repeated verify on an already-verified payment succeeds without a second
// credit: the wallet_topup transaction is keyed by the payment id.
func (s *service) Verify(ctx context.Context, paymentID, orderID, signature string) (*Payment, error) {
	p, err := s.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if p.OrderID != orderID {
		return nil, ErrHandleMismatch
	}

	switch p.Status {
	case StatusVerified:
		// Re-issue the credit in case a crash separated the status flip from
		// the ledger write; the idempotency key absorbs the replay.
		if err := s.credit(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	case StatusFailed:
		return nil, ErrVerificationFailed
	case StatusExpired:
		return nil, ErrPaymentExpired
	}

	if time.Now().After(p.ExpiresAt) {
		if err := s.repo.SetStatus(ctx, paymentID, StatusExpired); err != nil {
			return nil, err
		}
		metrics.RecordPaymentVerification("expired")
		return nil, ErrPaymentExpired
	}

	if !s.signatureValid(orderID, paymentID, signature) {
		if err := s.repo.SetStatus(ctx, paymentID, StatusFailed); err != nil {
			return nil, err
		}
		metrics.RecordPaymentVerification("failed")
		return nil, ErrVerificationFailed
	}

	if _, err := s.repo.MarkVerified(ctx, paymentID); err != nil {
		return nil, err
	}

	if err := s.credit(ctx, p); err != nil {
		return nil, err
	}

	metrics.RecordPaymentVerification("verified")
	s.notifier.Notify(ctx, p.UserID, "wallet_topup",
		fmt.Sprintf("Your wallet was credited with %s", p.Amount.StringFixed(2)))

	return s.repo.GetByPaymentID(ctx, paymentID)
}

func (s *service) History(ctx context.Context, userID int, limit, offset int) ([]Payment, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *service) credit(ctx context.Context, p *Payment) error {
	_, err := s.ledger.Credit(ctx, p.UserID, p.Amount, ledger.PurposeWalletTopup, p.PaymentID)
	return err
}

// signatureValid checks the HMAC-SHA256 of "<orderID>|<paymentID>" under the
// gateway secret, the scheme the settlement provider signs callbacks with.
func (s *service) signatureValid(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
