package dto

import "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"

// BalanceResponse reports the wallet balance and derived limits in satoshis.
type BalanceResponse struct {
	Balance       int64 `json:"balance"`
	MaxWithdrawal int64 `json:"max_withdrawal"`
	ServerFee     int64 `json:"server_fee_sats"`
}

// NewBalanceResponse renders s.
func NewBalanceResponse(s model.BalanceSummary) BalanceResponse {
	return BalanceResponse{Balance: s.Balance, MaxWithdrawal: s.MaxWithdrawal, ServerFee: s.ServerFee}
}
