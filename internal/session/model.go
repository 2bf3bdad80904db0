package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session statuses. pending -> accepted | rejected | cancelled;
// accepted -> completed | cancelled (before the scheduled time only).
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	PaymentCaptured = "captured"
	PaymentRefunded = "refunded"
	PaymentSettled  = "settled"
)

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// Session is a booking record. The amount is frozen at creation and the row
// is never deleted, only transitioned.
type Session struct {
	ID              int             `db:"id" json:"-"`
	SessionID       string          `db:"session_id" json:"session_id"`
	StudentID       int             `db:"student_id" json:"student_id"`
	FacultyID       int             `db:"faculty_id" json:"faculty_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	ScheduledTime   time.Time       `db:"scheduled_time" json:"scheduled_time"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Topic           string          `db:"topic" json:"topic"`
	Status          string          `db:"status" json:"status"`
	PaymentStatus   string          `db:"payment_status" json:"payment_status"`
	MeetingLink     *string         `db:"meeting_link" json:"meeting_link,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

type CreateBookingRequest struct {
	FacultyID       int             `json:"faculty_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	ScheduledTime   time.Time       `json:"scheduled_time" binding:"required"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,gte=15,lte=240"`
	Topic           string          `json:"topic" binding:"required,min=3,max=200"`
}

type DecisionRequest struct {
	Decision    string  `json:"decision" binding:"required,oneof=accept reject"`
	MeetingLink *string `json:"meeting_link,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}
