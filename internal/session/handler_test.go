package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Kaushikmangukiya360/student-friend/internal/ledger"
)

type MockService struct{ mock.Mock }

func (m *MockService) CreateBooking(ctx context.Context, studentID int, req CreateBookingRequest) (*Session, error) {
	args := m.Called(ctx, studentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockService) DecideBooking(ctx context.Context, sessionID string, actorID int, req DecisionRequest) (*Session, error) {
	args := m.Called(ctx, sessionID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockService) CompleteSession(ctx context.Context, sessionID string, actorID int) (*Session, error) {
	args := m.Called(ctx, sessionID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockService) CancelSession(ctx context.Context, sessionID string, actorID int) (*Session, error) {
	args := m.Called(ctx, sessionID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockService) ListForStudent(ctx context.Context, studentID int) ([]Session, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockService) ListForFaculty(ctx context.Context, facultyID int) ([]Session, error) {
	args := m.Called(ctx, facultyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(svc)

	router := gin.New()
	authed := router.Group("/", func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Set("user_role", "student")
		c.Next()
	})
	authed.POST("/sessions", handler.CreateBooking)
	authed.POST("/sessions/:sessionID/decision", handler.DecideBooking)
	authed.POST("/sessions/:sessionID/complete", handler.CompleteSession)
	authed.POST("/sessions/:sessionID/cancel", handler.CancelSession)
	authed.GET("/sessions", handler.ListSessions)
	return router
}

func bookingBody(t *testing.T) *bytes.Buffer {
	body, err := json.Marshal(CreateBookingRequest{
		FacultyID:       2,
		Amount:          decimal.RequireFromString("25.00"),
		ScheduledTime:   time.Now().Add(24 * time.Hour),
		DurationMinutes: 60,
		Topic:           "Linear Algebra",
	})
	assert.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestHandler_CreateBooking_Created(t *testing.T) {
	svc := new(MockService)
	svc.On("CreateBooking", mock.Anything, 1, mock.Anything).
		Return(&Session{SessionID: "sess_abc123def456", Status: StatusPending, PaymentStatus: PaymentCaptured}, nil)

	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/sessions", bookingBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "sess_abc123def456")
}

func TestHandler_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"insufficient funds", ErrInsufficientFunds, http.StatusPaymentRequired},
		{"not authorized", ErrNotAuthorized, http.StatusForbidden},
		{"not found", ErrSessionNotFound, http.StatusNotFound},
		{"invalid transition", ErrInvalidStateTransition, http.StatusConflict},
		{"duplicate reference", ledger.ErrDuplicateReference, http.StatusConflict},
		{"unavailable", ledger.ErrServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("CreateBooking", mock.Anything, 1, mock.Anything).Return(nil, tt.err)

			router := setupRouter(svc)

			req := httptest.NewRequest("POST", "/sessions", bookingBody(t))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestHandler_CreateBooking_BadPayload(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/sessions", bytes.NewBufferString(`{"faculty_id": 2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_DecideBooking(t *testing.T) {
	svc := new(MockService)
	svc.On("DecideBooking", mock.Anything, "sess_abc123def456", 1, mock.Anything).
		Return(&Session{SessionID: "sess_abc123def456", Status: StatusAccepted}, nil)

	router := setupRouter(svc)

	body := bytes.NewBufferString(`{"decision": "accept"}`)
	req := httptest.NewRequest("POST", "/sessions/sess_abc123def456/decision", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), StatusAccepted)
}

func TestHandler_DecideBooking_InvalidDecision(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	body := bytes.NewBufferString(`{"decision": "maybe"}`)
	req := httptest.NewRequest("POST", "/sessions/sess_abc123def456/decision", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CancelSession(t *testing.T) {
	svc := new(MockService)
	svc.On("CancelSession", mock.Anything, "sess_abc123def456", 1).
		Return(&Session{SessionID: "sess_abc123def456", Status: StatusCancelled, PaymentStatus: PaymentRefunded}, nil)

	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/sessions/sess_abc123def456/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), PaymentRefunded)
}

func TestHandler_ListSessions_StudentRole(t *testing.T) {
	svc := new(MockService)
	svc.On("ListForStudent", mock.Anything, 1).Return([]Session{{SessionID: "sess_111111111111"}}, nil)

	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertNotCalled(t, "ListForFaculty", mock.Anything, mock.Anything)
}
