package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/dto"
)

// WithdrawalHandler processes withdrawal requests and payment notifications.
type WithdrawalHandler struct {
	facade WithdrawalFacade
}

// NewWithdrawalHandler creates WithdrawalHandler instance.
func NewWithdrawalHandler(facade WithdrawalFacade) *WithdrawalHandler {
	return &WithdrawalHandler{facade: facade}
}

// Withdraw handles POST /withdraw.
func (h *WithdrawalHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := bindJSON(c, &req, "withdrawal_destination and layer_2_chain_name must be strings"); err != nil {
		writeError(c, err, nil)
		return
	}

	created, err := h.facade.RequestWithdrawal(c.Request.Context(), req.Destination, req.AmountText(), req.L2Chain)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	writeSuccess(c, "Withdrawal request received and stored", dto.NewWithdrawalResponse(created))
}

// Paid handles POST /paid.
func (h *WithdrawalHandler) Paid(c *gin.Context) {
	var req dto.PaidRequest
	if err := bindJSON(c, &req, "Both hash and txid must be strings"); err != nil {
		writeError(c, err, nil)
		return
	}

	result, err := h.facade.ConfirmPayment(c.Request.Context(), req.Hash, req.TxID)
	if err != nil {
		var data any
		if result.Fingerprint != "" {
			data = dto.NewWithdrawalResponse(result)
		}
		writeError(c, err, data)
		return
	}

	data := dto.NewWithdrawalResponse(result)
	switch {
	case result.State == model.WithdrawalStateCompleted:
		writeSuccess(c, result.PayoutTxID, data)
	case result.FailureReason == model.FailureReasonPaymentNotVerified:
		c.JSON(http.StatusOK, dto.Envelope{Status: dto.StatusError, Message: "Payment not verified", Data: data})
	case result.FailureReason == model.FailureReasonPayoutFailed:
		c.JSON(http.StatusOK, dto.Envelope{Status: dto.StatusError, Message: "Payout failed", Data: data})
	default:
		c.JSON(http.StatusOK, dto.Envelope{Status: dto.StatusError, Message: "Withdrawal request is " + string(result.State), Data: data})
	}
}

// Get handles GET /withdrawals/:fingerprint.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	req, err := h.facade.Withdrawal(c.Request.Context(), c.Param("fingerprint"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	writeSuccess(c, "Withdrawal request found", dto.NewWithdrawalResponse(req))
}
