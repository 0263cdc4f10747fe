package gateway

import (
	"context"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// Ledger is the custodial mainchain wallet.
//
// Implementations report ErrConnection for transport failures and timeouts and ErrAuth for
// rejected credentials.
type Ledger interface {
	GetBalance(ctx context.Context) (int64, error)
	NewAddress(ctx context.Context) (string, error)
	ValidateAddress(ctx context.Context, address string) (model.AddressValidation, error)
	SendToAddress(ctx context.Context, address string, amount int64) (string, error)
}

// L2Adapter talks to one layer-2 payment system.
//
// VerifyPayment must not change chain state; a definitive "not paid" is (false, nil).
// Failures are reported as ErrAdapterUnavailable or ErrAdapterError.
type L2Adapter interface {
	NewAddress(ctx context.Context) (string, error)
	VerifyPayment(ctx context.Context, txID, address string, amount int64) (bool, error)
}

// L2Adapters resolves a chain name to its adapter.
type L2Adapters interface {
	Adapter(chain string) (L2Adapter, bool)
}
