package repository

import (
	"context"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// WithdrawalRepository is the registry of withdrawal requests keyed by fingerprint.
//
// Insert computes and assigns the fingerprint, failing with ErrDuplicateRequest on collision.
// Transition is a compare-and-swap on state: it fails with ErrInvalidTransition unless the stored
// state equals from, and is atomic with respect to every other call on the same fingerprint.
// ListByState returns at most limit requests in state, least recently updated first.
// A non-empty reason keeps only requests with that FailureReason, before the limit applies.
type WithdrawalRepository interface {
	Insert(ctx context.Context, req model.WithdrawalRequest) (string, error)
	Lookup(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error)
	Transition(ctx context.Context, fingerprint string, from, to model.WithdrawalState, update model.StateUpdate) (model.WithdrawalRequest, error)
	ListByState(ctx context.Context, state model.WithdrawalState, reason model.FailureReason, limit int) ([]model.WithdrawalRequest, error)
}
