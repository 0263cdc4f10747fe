package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// WithdrawalState describes withdrawal request lifecycle.
type WithdrawalState string

const (
	WithdrawalStateCreated   WithdrawalState = "CREATED"
	WithdrawalStatePaid      WithdrawalState = "PAID"
	WithdrawalStateCompleted WithdrawalState = "COMPLETED"
	WithdrawalStateFailed    WithdrawalState = "FAILED"
)

// FailureReason explains why a request ended in WithdrawalStateFailed.
type FailureReason string

const (
	FailureReasonNone               FailureReason = ""
	FailureReasonPaymentNotVerified FailureReason = "PaymentNotVerified"
	FailureReasonPayoutFailed       FailureReason = "PayoutFailed"
)

// TimestampLayout is the ISO-8601 millisecond form used for fingerprints and API timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// WithdrawalRequest is a user's intent to move value from an L2 system to the mainchain.
type WithdrawalRequest struct {
	Fingerprint     string
	Destination     string
	Amount          int64
	L2Chain         string
	ServerL1Address string
	ServerL2Address string
	ServerFee       int64
	State           WithdrawalState
	FailureReason   FailureReason
	FailureDetail   string
	L2TxID          string
	PayoutTxID      string
	CreatedAt       time.Time
	PaidAt          *time.Time
	UpdatedAt       time.Time
}

// fingerprintInput fixes field order and names of the hashed document.
type fingerprintInput struct {
	Destination     string `json:"withdrawal_destination"`
	Amount          int64  `json:"withdrawal_amount"`
	L2Chain         string `json:"layer_2_chain_name"`
	ServerL1Address string `json:"server_l1_address"`
	ServerL2Address string `json:"server_l2_address"`
	ServerFee       int64  `json:"server_fee_sats"`
	Timestamp       string `json:"timestamp"`
}

// ComputeFingerprint derives the hex sha256 identifier from the immutable request fields.
func ComputeFingerprint(r WithdrawalRequest) string {
	payload, _ := json.Marshal(fingerprintInput{
		Destination:     r.Destination,
		Amount:          r.Amount,
		L2Chain:         r.L2Chain,
		ServerL1Address: r.ServerL1Address,
		ServerL2Address: r.ServerL2Address,
		ServerFee:       r.ServerFee,
		Timestamp:       r.CreatedAt.UTC().Format(TimestampLayout),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Terminal reports whether no further transition is possible.
func (s WithdrawalState) Terminal() bool {
	return s == WithdrawalStateCompleted || s == WithdrawalStateFailed
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to WithdrawalState) bool {
	switch from {
	case WithdrawalStateCreated:
		return to == WithdrawalStatePaid || to == WithdrawalStateFailed
	case WithdrawalStatePaid:
		return to == WithdrawalStateCompleted || to == WithdrawalStateFailed
	default:
		return false
	}
}

// StateUpdate carries the fields a transition is allowed to set.
type StateUpdate struct {
	L2TxID        string
	PaidAt        time.Time
	PayoutTxID    string
	FailureReason FailureReason
	FailureDetail string
	At            time.Time
}

// Apply moves r into state to, copying only the fields that the target state owns.
// It returns false when the update is incomplete for the target state.
func (r *WithdrawalRequest) Apply(to WithdrawalState, u StateUpdate) bool {
	switch to {
	case WithdrawalStatePaid:
		if u.L2TxID == "" || u.PaidAt.IsZero() || r.L2TxID != "" {
			return false
		}
		paidAt := u.PaidAt
		r.L2TxID = u.L2TxID
		r.PaidAt = &paidAt
	case WithdrawalStateCompleted:
		if u.PayoutTxID == "" {
			return false
		}
		r.PayoutTxID = u.PayoutTxID
	case WithdrawalStateFailed:
		if u.FailureReason == FailureReasonNone {
			return false
		}
		r.FailureReason = u.FailureReason
		r.FailureDetail = u.FailureDetail
	default:
		return false
	}
	r.State = to
	if !u.At.IsZero() {
		r.UpdatedAt = u.At
	}
	return true
}
