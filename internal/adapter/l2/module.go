package l2

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/gateway"
)

// Module wires the configured L2 adapters.
var Module = fx.Provide(
	newRegistry,
	func(r *Registry) gateway.L2Adapters { return r },
)

type registryParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newRegistry(p registryParams) (*Registry, error) {
	thunder, err := NewCLIAdapter(CLIConfig{
		Chain:  ChainThunder,
		Binary: p.Config.ThunderCLIPath,
		RPCURL: p.Config.ThunderRPCURL,
	}, p.Logger.With(slog.String("component", "l2"), slog.String("chain", ChainThunder)))
	if err != nil {
		return nil, err
	}

	bitnames, err := NewCLIAdapter(CLIConfig{
		Chain:         ChainBitNames,
		Binary:        p.Config.BitNamesCLIPath,
		RPCURL:        p.Config.BitNamesRPCURL,
		RequireRPCURL: true,
	}, p.Logger.With(slog.String("component", "l2"), slog.String("chain", ChainBitNames)))
	if err != nil {
		return nil, err
	}

	return NewRegistry(map[string]gateway.L2Adapter{
		ChainThunder:  thunder,
		ChainBitNames: bitnames,
	}), nil
}
