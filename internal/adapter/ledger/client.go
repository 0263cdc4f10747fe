package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// Config describes how to reach the Bitcoin Core wallet.
type Config struct {
	Host    string
	User    string
	Pass    string
	Network string
}

// RPCClient is a Ledger backed by the Bitcoin Core JSON-RPC wallet.
type RPCClient struct {
	client *rpcclient.Client
	params *chaincfg.Params
	logger *slog.Logger
}

// NetworkParams resolves a network name to chain parameters.
func NetworkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case chaincfg.MainNetParams.Name, "main":
		return &chaincfg.MainNetParams, nil
	case chaincfg.TestNet3Params.Name, "testnet":
		return &chaincfg.TestNet3Params, nil
	case chaincfg.SigNetParams.Name:
		return &chaincfg.SigNetParams, nil
	case chaincfg.RegressionNetParams.Name:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", name)
	}
}

// NewRPCClient creates a client using HTTP POST mode without TLS, as bitcoind expects.
func NewRPCClient(cfg Config, logger *slog.Logger) (*RPCClient, error) {
	params, err := NetworkParams(cfg.Network)
	if err != nil {
		return nil, err
	}
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		Params:       params.Name,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create bitcoin rpc client: %w", err)
	}
	return &RPCClient{client: client, params: params, logger: logger}, nil
}

// Close shuts the underlying client down.
func (c *RPCClient) Close() {
	c.client.Shutdown()
}

// GetBalance returns the wallet balance in satoshis.
func (c *RPCClient) GetBalance(ctx context.Context) (int64, error) {
	amount, err := await(ctx, c.client.GetBalanceAsync("*").Receive)
	if err != nil {
		return 0, c.classify("getbalance", err)
	}
	if amount < 0 {
		return 0, domainErrors.New(domainErrors.ErrLedger, "bitcoin rpc getbalance: negative balance %d", int64(amount))
	}
	return int64(amount), nil
}

// NewAddress asks the wallet for a fresh receiving address.
func (c *RPCClient) NewAddress(ctx context.Context) (string, error) {
	addr, err := await(ctx, c.client.GetNewAddressAsync("").Receive)
	if err != nil {
		return "", c.classify("getnewaddress", err)
	}
	return addr.EncodeAddress(), nil
}

type validateAddressResult struct {
	IsValid bool   `json:"isvalid"`
	Error   string `json:"error"`
}

// ValidateAddress checks address locally against the configured network and then with the node.
func (c *RPCClient) ValidateAddress(ctx context.Context, address string) (model.AddressValidation, error) {
	decoded, err := btcutil.DecodeAddress(address, c.params)
	if err != nil {
		return model.AddressValidation{Valid: false, Reason: err.Error()}, nil
	}
	if !decoded.IsForNet(c.params) {
		return model.AddressValidation{Valid: false, Reason: fmt.Sprintf("address is not for %s", c.params.Name)}, nil
	}

	param, err := json.Marshal(address)
	if err != nil {
		return model.AddressValidation{}, err
	}
	raw, err := await(ctx, c.client.RawRequestAsync("validateaddress", []json.RawMessage{param}).Receive)
	if err != nil {
		return model.AddressValidation{}, c.classify("validateaddress", err)
	}
	var res validateAddressResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.AddressValidation{}, domainErrors.Wrap(domainErrors.ErrLedger, err, "bitcoin rpc validateaddress: decode result")
	}
	return model.AddressValidation{Valid: res.IsValid, Reason: res.Error}, nil
}

// SendToAddress pays amount satoshis to address and returns the transaction id.
func (c *RPCClient) SendToAddress(ctx context.Context, address string, amount int64) (string, error) {
	decoded, err := btcutil.DecodeAddress(address, c.params)
	if err != nil {
		return "", domainErrors.Wrap(domainErrors.ErrInvalidDestination, err, "Invalid L1 BTC address: %s", err)
	}
	hash, err := await(ctx, c.client.SendToAddressAsync(decoded, btcutil.Amount(amount)).Receive)
	if err != nil {
		return "", c.classify("sendtoaddress", err)
	}
	return hash.String(), nil
}

// await waits for an rpcclient future while honouring ctx.
func await[T any](ctx context.Context, receive func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := receive()
		ch <- result{value: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.value, r.err
	}
}

func (c *RPCClient) classify(method string, err error) error {
	kind := kindOf(err)
	if c.logger != nil {
		c.logger.Warn("bitcoin rpc call failed",
			slog.String("method", method),
			slog.String("kind", kind.Error()),
			slog.String("error", err.Error()),
		)
	}
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return domainErrors.Wrap(kind, err, "bitcoin rpc %s: %s", method, rpcErr.Message)
	}
	return domainErrors.Wrap(kind, err, "bitcoin rpc %s: %v", method, err)
}

// rpcInWarmup is returned by bitcoind while it is still loading.
const rpcInWarmup btcjson.RPCErrorCode = -28

func kindOf(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainErrors.ErrConnection
	}
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == rpcInWarmup {
			return domainErrors.ErrConnection
		}
		return domainErrors.ErrLedger
	}
	msg := err.Error()
	if strings.Contains(msg, "status code: 401") || strings.Contains(msg, "status code: 403") {
		return domainErrors.ErrAuth
	}
	return domainErrors.ErrConnection
}
