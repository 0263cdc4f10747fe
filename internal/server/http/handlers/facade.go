package handlers

import (
	"context"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// WithdrawalFacade covers the withdrawal lifecycle endpoints.
type WithdrawalFacade interface {
	RequestWithdrawal(ctx context.Context, destination, amount, chain string) (model.WithdrawalRequest, error)
	ConfirmPayment(ctx context.Context, fingerprint, l2TxID string) (model.WithdrawalRequest, error)
	Withdrawal(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error)
}

// BalanceFacade provides the operator balance view.
type BalanceFacade interface {
	Balance(ctx context.Context) (model.BalanceSummary, error)
}

// HealthFacade checks backing services.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// BridgeFacade aggregates the full set of operations used across handlers.
type BridgeFacade interface {
	WithdrawalFacade
	BalanceFacade
	HealthFacade
}
