package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// WithdrawRequest describes POST /withdraw payload.
type WithdrawRequest struct {
	Destination string          `json:"withdrawal_destination"`
	Amount      json.RawMessage `json:"withdrawal_amount"`
	L2Chain     string          `json:"layer_2_chain_name"`
}

// AmountText returns withdrawal_amount as text whether it was sent as a number or a string.
// Absent and null values become "".
func (r WithdrawRequest) AmountText() string {
	raw := bytes.TrimSpace(r.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// PaidRequest describes POST /paid payload.
type PaidRequest struct {
	Hash string `json:"hash"`
	TxID string `json:"txid"`
}

// WithdrawalResponse is the public form of a withdrawal request.
type WithdrawalResponse struct {
	Hash            string  `json:"hash"`
	Destination     string  `json:"withdrawal_destination"`
	Amount          int64   `json:"withdrawal_amount"`
	L2Chain         string  `json:"layer_2_chain_name"`
	ServerL1Address string  `json:"server_l1_address"`
	ServerL2Address string  `json:"server_l2_address"`
	ServerFee       int64   `json:"server_fee_sats"`
	Timestamp       string  `json:"timestamp"`
	State           string  `json:"state"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	FailureDetail   string  `json:"failure_detail,omitempty"`
	TxID            string  `json:"txid,omitempty"`
	PaidAt          *string `json:"paid_at,omitempty"`
	PayoutTxID      string  `json:"payout_txid,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
}

// NewWithdrawalResponse renders r.
func NewWithdrawalResponse(r model.WithdrawalRequest) WithdrawalResponse {
	resp := WithdrawalResponse{
		Hash:            r.Fingerprint,
		Destination:     r.Destination,
		Amount:          r.Amount,
		L2Chain:         r.L2Chain,
		ServerL1Address: r.ServerL1Address,
		ServerL2Address: r.ServerL2Address,
		ServerFee:       r.ServerFee,
		Timestamp:       r.CreatedAt.UTC().Format(model.TimestampLayout),
		State:           string(r.State),
		FailureReason:   string(r.FailureReason),
		FailureDetail:   r.FailureDetail,
		TxID:            r.L2TxID,
		PayoutTxID:      r.PayoutTxID,
	}
	if r.PaidAt != nil {
		paidAt := r.PaidAt.UTC().Format(model.TimestampLayout)
		resp.PaidAt = &paidAt
	}
	if !r.UpdatedAt.IsZero() {
		resp.UpdatedAt = r.UpdatedAt.UTC().Format(model.TimestampLayout)
	}
	return resp
}
