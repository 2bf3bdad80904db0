package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Kaushikmangukiya360/student-friend/internal/api"
	"github.com/Kaushikmangukiya360/student-friend/internal/auth"
	"github.com/Kaushikmangukiya360/student-friend/internal/ledger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// InitiateTopUp godoc
// @Summary      Initiate a wallet top-up
// @Description  Creates a payment handle to complete with the external settlement provider.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      InitiateRequest  true  "Top-up data"
// @Success      201      {object}  InitiateResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /wallet/topup/initiate [post]
func (h *Handler) InitiateTopUp(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Initiate(c.Request.Context(), userID, req.Amount, req.Metadata)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "amount must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to initiate payment"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// VerifyTopUp godoc
// @Summary      Verify a wallet top-up
// @Description  Validates the provider signature and credits the wallet exactly once.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyRequest  true  "Verification payload"
// @Success      200      {object}  Payment
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      410      {object}  api.ErrorResponse
// @Router       /wallet/topup/verify [post]
func (h *Handler) VerifyTopUp(c *gin.Context) {
	if _, ok := auth.GetUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.service.Verify(c.Request.Context(), req.PaymentID, req.OrderID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "payment not found"})
		case errors.Is(err, ErrVerificationFailed), errors.Is(err, ErrHandleMismatch):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "payment verification failed"})
		case errors.Is(err, ErrPaymentExpired):
			c.JSON(http.StatusGone, api.ErrorResponse{Error: "payment has expired"})
		case errors.Is(err, ledger.ErrServiceUnavailable):
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "temporarily unavailable, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to verify payment"})
		}
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListPayments godoc
// @Summary      List top-up payments
// @Description  Returns the payment history of the authenticated user.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size (default 20)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   Payment
// @Failure      500     {object}  api.ErrorResponse
// @Router       /wallet/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.service.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
