package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/dto"
)

// BalanceHandler serves the wallet balance.
type BalanceHandler struct {
	facade BalanceFacade
}

// NewBalanceHandler constructs BalanceHandler.
func NewBalanceHandler(facade BalanceFacade) *BalanceHandler {
	return &BalanceHandler{facade: facade}
}

// Summary handles GET /balance.
func (h *BalanceHandler) Summary(c *gin.Context) {
	summary, err := h.facade.Balance(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}
	writeSuccess(c, "Balance retrieved", dto.NewBalanceResponse(summary))
}
