package ledger

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/gateway"
)

// Module exposes the bitcoind ledger to fx graph.
var Module = fx.Provide(newLedger)

type ledgerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newLedger(p ledgerParams) (gateway.Ledger, error) {
	client, err := NewRPCClient(Config{
		Host:    p.Config.BitcoinRPCAddress(),
		User:    p.Config.BitcoinRPCUser,
		Pass:    p.Config.BitcoinRPCPass,
		Network: p.Config.BitcoinNetwork,
	}, p.Logger)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			client.Close()
			return nil
		},
	})
	return client, nil
}
