package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/gateway"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newFeePolicy,
	newWithdrawalUseCase,
)

func newFeePolicy(cfg *config.Config) FeePolicy {
	return NewFeePolicy(cfg.ServerFeeSats, cfg.MaxWithdrawalBps)
}

type withdrawalParams struct {
	fx.In

	Repo     repository.WithdrawalRepository
	Ledger   gateway.Ledger
	Adapters gateway.L2Adapters
	Policy   FeePolicy
	Config   *config.Config
	Logger   *slog.Logger
	Events   EventPublisher  `optional:"true"`
	Metrics  MetricsRecorder `optional:"true"`
}

func newWithdrawalUseCase(p withdrawalParams) *WithdrawalUseCase {
	return NewWithdrawalUseCase(p.Repo, p.Ledger, p.Adapters, p.Policy,
		WithLogger(p.Logger),
		WithEventPublisher(p.Events),
		WithMetrics(p.Metrics),
		WithCallTimeout(p.Config.CallTimeout),
	)
}
