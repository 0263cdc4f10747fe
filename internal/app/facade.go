package app

import (
	"context"
	"strings"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/storage"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/usecase"
)

// BridgeFacade adapts the withdrawal use case to the operations exposed over HTTP.
type BridgeFacade struct {
	withdrawals *usecase.WithdrawalUseCase
	health      storage.HealthChecker
}

func NewBridgeFacade(withdrawals *usecase.WithdrawalUseCase, health storage.HealthChecker) *BridgeFacade {
	return &BridgeFacade{withdrawals: withdrawals, health: health}
}

// RequestWithdrawal accepts the textual amount as sent by clients.
func (f *BridgeFacade) RequestWithdrawal(ctx context.Context, destination, amount, chain string) (model.WithdrawalRequest, error) {
	amount = strings.TrimSpace(amount)
	if err := usecase.RequireFields([][2]string{
		{"withdrawal_destination", destination},
		{"withdrawal_amount", amount},
		{"layer_2_chain_name", chain},
	}); err != nil {
		return model.WithdrawalRequest{}, err
	}
	sats, err := usecase.ParseAmount(amount)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	return f.withdrawals.RequestWithdrawal(ctx, destination, sats, chain)
}

func (f *BridgeFacade) ConfirmPayment(ctx context.Context, fingerprint, l2TxID string) (model.WithdrawalRequest, error) {
	return f.withdrawals.ConfirmPayment(ctx, fingerprint, l2TxID)
}

func (f *BridgeFacade) Withdrawal(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error) {
	return f.withdrawals.GetWithdrawal(ctx, fingerprint)
}

func (f *BridgeFacade) Balance(ctx context.Context) (model.BalanceSummary, error) {
	return f.withdrawals.Balance(ctx)
}

func (f *BridgeFacade) HealthCheck(ctx context.Context) error {
	if f.health == nil {
		return nil
	}
	return f.health.HealthCheck(ctx)
}
