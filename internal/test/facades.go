package test

import (
	"context"
	"sync"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// BridgeFacadeStub provides controllable behaviour for bridge endpoints.
type BridgeFacadeStub struct {
	RequestFn    func(context.Context, string, string, string) (model.WithdrawalRequest, error)
	ConfirmFn    func(context.Context, string, string) (model.WithdrawalRequest, error)
	WithdrawalFn func(context.Context, string) (model.WithdrawalRequest, error)
	BalanceFn    func(context.Context) (model.BalanceSummary, error)
	HealthErr    error
}

// RequestWithdrawal delegates to provided function or echoes the input as a created request.
func (s BridgeFacadeStub) RequestWithdrawal(ctx context.Context, destination, amount, chain string) (model.WithdrawalRequest, error) {
	if s.RequestFn != nil {
		return s.RequestFn(ctx, destination, amount, chain)
	}
	return model.WithdrawalRequest{
		Fingerprint: "fingerprint",
		Destination: destination,
		L2Chain:     chain,
		State:       model.WithdrawalStateCreated,
	}, nil
}

// ConfirmPayment delegates to provided function or returns a completed request.
func (s BridgeFacadeStub) ConfirmPayment(ctx context.Context, fingerprint, l2TxID string) (model.WithdrawalRequest, error) {
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, fingerprint, l2TxID)
	}
	return model.WithdrawalRequest{
		Fingerprint: fingerprint,
		L2TxID:      l2TxID,
		PayoutTxID:  "payout",
		State:       model.WithdrawalStateCompleted,
	}, nil
}

// Withdrawal returns the stored request for fingerprint.
func (s BridgeFacadeStub) Withdrawal(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error) {
	if s.WithdrawalFn != nil {
		return s.WithdrawalFn(ctx, fingerprint)
	}
	return model.WithdrawalRequest{Fingerprint: fingerprint, State: model.WithdrawalStateCreated}, nil
}

// Balance returns predefined summary.
func (s BridgeFacadeStub) Balance(ctx context.Context) (model.BalanceSummary, error) {
	if s.BalanceFn != nil {
		return s.BalanceFn(ctx)
	}
	return model.BalanceSummary{Balance: 1_000_000, MaxWithdrawal: 100_000, ServerFee: 1000}, nil
}

// HealthCheck returns HealthErr.
func (s BridgeFacadeStub) HealthCheck(context.Context) error {
	return s.HealthErr
}

// HealthCheckerStub counts health checks.
type HealthCheckerStub struct {
	Err error

	mu    sync.Mutex
	Calls int
}

// HealthCheck records the call and returns Err.
func (h *HealthCheckerStub) HealthCheck(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Calls++
	return h.Err
}
