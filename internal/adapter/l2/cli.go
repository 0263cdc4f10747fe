package l2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
)

type execCommandFn func(ctx context.Context, bin string, args ...string) ([]byte, []byte, error)

// CLIConfig describes one L2 node reachable through its command line client.
type CLIConfig struct {
	Chain          string
	Binary         string
	RPCURL         string
	RequireRPCURL  bool
	MaxOutputBytes int
}

// CLIAdapter talks to an L2 node by running its CLI, e.g. `thunder_app_cli --rpc-url=... get-new-address`.
type CLIAdapter struct {
	chain          string
	bin            string
	rpcURL         string
	requireRPCURL  bool
	maxOutputBytes int
	logger         *slog.Logger
	execCommand    execCommandFn
}

const defaultMaxOutputBytes = 16 << 20

// NewCLIAdapter constructs CLIAdapter.
func NewCLIAdapter(cfg CLIConfig, logger *slog.Logger) (*CLIAdapter, error) {
	if strings.TrimSpace(cfg.Chain) == "" {
		return nil, errors.New("l2: missing chain name")
	}
	if strings.TrimSpace(cfg.Binary) == "" {
		return nil, fmt.Errorf("l2: missing %s cli binary", cfg.Chain)
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CLIAdapter{
		chain:          cfg.Chain,
		bin:            cfg.Binary,
		rpcURL:         strings.TrimSpace(cfg.RPCURL),
		requireRPCURL:  cfg.RequireRPCURL,
		maxOutputBytes: cfg.MaxOutputBytes,
		logger:         logger,
		execCommand:    runExecCommand,
	}, nil
}

// Chain returns the chain name served by the adapter.
func (a *CLIAdapter) Chain() string { return a.chain }

// NewAddress returns a fresh deposit address owned by the server wallet.
func (a *CLIAdapter) NewAddress(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "get-new-address")
	if err != nil {
		return "", err
	}
	addr := strings.TrimSpace(string(out))
	if addr == "" {
		return "", domainErrors.New(domainErrors.ErrAdapterError, "%s CLI returned an empty address", a.chain)
	}
	return addr, nil
}

// walletUTXO mirrors one entry of `get-wallet-utxos`.
type walletUTXO struct {
	OutPoint struct {
		Regular *struct {
			TxID string `json:"txid"`
			Vout uint32 `json:"vout"`
		} `json:"Regular"`
	} `json:"outpoint"`
	Output struct {
		Address string          `json:"address"`
		Content json.RawMessage `json:"content"`
	} `json:"output"`
}

// value returns the plain coin amount of the output; withdrawal and other non-value contents report false.
func (u walletUTXO) value() (int64, bool) {
	var content struct {
		Value *int64 `json:"Value"`
	}
	if err := json.Unmarshal(u.Output.Content, &content); err != nil || content.Value == nil {
		return 0, false
	}
	return *content.Value, true
}

// VerifyPayment reports whether the wallet holds outputs of txID paying at least amount to address.
func (a *CLIAdapter) VerifyPayment(ctx context.Context, txID, address string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, domainErrors.New(domainErrors.ErrAdapterError, "%s payment check needs a positive amount, got %d", a.chain, amount)
	}
	out, err := a.run(ctx, "get-wallet-utxos")
	if err != nil {
		return false, err
	}
	var utxos []walletUTXO
	if err := json.Unmarshal(out, &utxos); err != nil {
		return false, domainErrors.Wrap(domainErrors.ErrAdapterError, err, "%s CLI returned undecodable utxos", a.chain)
	}

	var received int64
	for _, u := range utxos {
		if u.OutPoint.Regular == nil || u.OutPoint.Regular.TxID != txID || u.Output.Address != address {
			continue
		}
		if v, ok := u.value(); ok {
			received += v
		}
	}
	a.logger.Debug("l2 payment check",
		slog.String("chain", a.chain),
		slog.String("txid", txID),
		slog.Int64("received", received),
		slog.Int64("expected", amount),
	)
	return received >= amount, nil
}

func (a *CLIAdapter) run(ctx context.Context, command ...string) ([]byte, error) {
	if a.rpcURL == "" && a.requireRPCURL {
		return nil, domainErrors.New(domainErrors.ErrAdapterError, "%s CLI RPC URL is not set", a.chain)
	}
	args := make([]string, 0, len(command)+1)
	if a.rpcURL != "" {
		args = append(args, "--rpc-url="+a.rpcURL)
	}
	args = append(args, command...)

	stdout, stderr, err := a.execCommand(ctx, a.bin, args...)
	if len(stderr) > 0 {
		a.logger.Warn("l2 cli stderr",
			slog.String("chain", a.chain),
			slog.String("command", strings.Join(command, " ")),
			slog.String("stderr", strings.TrimSpace(string(stderr))),
		)
	}
	if err != nil {
		return nil, a.classify(ctx, command, stdout, stderr, err)
	}
	if len(stdout) > a.maxOutputBytes {
		return nil, domainErrors.New(domainErrors.ErrAdapterError, "%s CLI output exceeds %d bytes", a.chain, a.maxOutputBytes)
	}
	return stdout, nil
}

func (a *CLIAdapter) classify(ctx context.Context, command []string, stdout, stderr []byte, err error) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(stdout))
	}
	if msg == "" {
		msg = err.Error()
	}
	name := strings.Join(command, " ")
	switch {
	case ctx.Err() != nil:
		return domainErrors.Wrap(domainErrors.ErrAdapterUnavailable, ctx.Err(), "%s CLI %s: %v", a.chain, name, ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return domainErrors.Wrap(domainErrors.ErrAdapterUnavailable, err, "%s CLI not found at path: %s", a.chain, a.bin)
	case isConnectionFailure(msg):
		return domainErrors.Wrap(domainErrors.ErrAdapterUnavailable, err, "%s node unreachable: %s", a.chain, msg)
	default:
		return domainErrors.Wrap(domainErrors.ErrAdapterError, err, "%s CLI %s failed: %s", a.chain, name, msg)
	}
}

func isConnectionFailure(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{"connection refused", "connection reset", "error trying to connect", "timed out"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func runExecCommand(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
