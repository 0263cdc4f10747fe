package model

import "time"

// EventType names a lifecycle change of a withdrawal request.
type EventType string

const (
	EventWithdrawalCreated   EventType = "withdrawal.created"
	EventWithdrawalPaid      EventType = "withdrawal.paid"
	EventWithdrawalCompleted EventType = "withdrawal.completed"
	EventWithdrawalFailed    EventType = "withdrawal.failed"
)

// WithdrawalEvent is published after a request is stored or changes state.
type WithdrawalEvent struct {
	Type          EventType
	Fingerprint   string
	L2Chain       string
	State         WithdrawalState
	FailureReason FailureReason
	L2TxID        string
	PayoutTxID    string
	At            time.Time
}

// NewWithdrawalEvent snapshots r as an event of type t.
func NewWithdrawalEvent(t EventType, r WithdrawalRequest, at time.Time) WithdrawalEvent {
	return WithdrawalEvent{
		Type:          t,
		Fingerprint:   r.Fingerprint,
		L2Chain:       r.L2Chain,
		State:         r.State,
		FailureReason: r.FailureReason,
		L2TxID:        r.L2TxID,
		PayoutTxID:    r.PayoutTxID,
		At:            at,
	}
}

// EventTypeFor maps a state reached by a transition to its event type.
func EventTypeFor(s WithdrawalState) EventType {
	switch s {
	case WithdrawalStatePaid:
		return EventWithdrawalPaid
	case WithdrawalStateCompleted:
		return EventWithdrawalCompleted
	case WithdrawalStateFailed:
		return EventWithdrawalFailed
	default:
		return EventWithdrawalCreated
	}
}
