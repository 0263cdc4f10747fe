package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/repository"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/storage/memory"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/storage/postgres"
)

// HealthChecker reports whether the registry backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Module wires the withdrawal registry: PostgreSQL when a DSN is configured, memory otherwise.
var Module = fx.Provide(newRegistry)

type registryParams struct {
	fx.In

	Ctx       context.Context
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

type registryResult struct {
	fx.Out

	Repository repository.WithdrawalRepository
	Health     HealthChecker
}

var openPostgres = postgres.New

func newRegistry(p registryParams) (registryResult, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Info("using in-memory withdrawal registry")
		reg := memory.NewRegistry()
		return registryResult{Repository: reg, Health: reg}, nil
	}

	st, err := openPostgres(p.Ctx, p.Config.DatabaseURI, p.Logger)
	if err != nil {
		return registryResult{}, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			st.Close()
			return nil
		},
	})
	p.Logger.Info("using postgres withdrawal registry")
	return registryResult{Repository: st.Withdrawals(), Health: st}, nil
}
