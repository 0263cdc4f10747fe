package auth

import (
	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newTokenHasher),
	fx.Provide(newOperatorVerifier),
)

func newTokenHasher() TokenHasher {
	return NewBcryptHasher(0)
}

type verifierParams struct {
	fx.In

	Config *config.Config
	Hasher TokenHasher
}

func newOperatorVerifier(p verifierParams) Verifier {
	return NewOperatorVerifier(p.Config.OperatorTokenHash, p.Hasher)
}
