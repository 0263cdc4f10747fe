package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/gateway"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/repository"
)

// DefaultCallTimeout bounds a single Ledger or L2 adapter call when no timeout is configured.
const DefaultCallTimeout = 15 * time.Second

// Call targets reported to the MetricsRecorder.
const (
	TargetLedger = "ledger"
	TargetL2     = "l2"
)

// EventPublisher receives lifecycle events after a request is stored or transitioned.
type EventPublisher interface {
	Publish(ctx context.Context, event model.WithdrawalEvent) error
}

// MetricsRecorder observes withdrawal outcomes and external call latency.
type MetricsRecorder interface {
	RequestOutcome(result string)
	ConfirmationOutcome(state string)
	ExternalCall(target, operation string, err error, elapsed time.Duration)
}

// WithdrawalUseCase orchestrates fee policy, ledger, L2 adapters and the registry.
type WithdrawalUseCase struct {
	repo        repository.WithdrawalRepository
	ledger      gateway.Ledger
	adapters    gateway.L2Adapters
	policy      FeePolicy
	events      EventPublisher
	metrics     MetricsRecorder
	log         *slog.Logger
	callTimeout time.Duration
	now         func() time.Time
}

// WithdrawalOption customises WithdrawalUseCase.
type WithdrawalOption func(*WithdrawalUseCase)

// WithEventPublisher sets the publisher notified on every lifecycle change.
func WithEventPublisher(p EventPublisher) WithdrawalOption {
	return func(u *WithdrawalUseCase) {
		if p != nil {
			u.events = p
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) WithdrawalOption {
	return func(u *WithdrawalUseCase) {
		if m != nil {
			u.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WithdrawalOption {
	return func(u *WithdrawalUseCase) {
		if l != nil {
			u.log = l
		}
	}
}

// WithCallTimeout bounds every Ledger and L2 adapter call.
func WithCallTimeout(d time.Duration) WithdrawalOption {
	return func(u *WithdrawalUseCase) {
		if d > 0 {
			u.callTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WithdrawalOption {
	return func(u *WithdrawalUseCase) {
		if now != nil {
			u.now = now
		}
	}
}

// NewWithdrawalUseCase constructs WithdrawalUseCase.
func NewWithdrawalUseCase(repo repository.WithdrawalRepository, ledger gateway.Ledger, adapters gateway.L2Adapters, policy FeePolicy, opts ...WithdrawalOption) *WithdrawalUseCase {
	u := &WithdrawalUseCase{
		repo:        repo,
		ledger:      ledger,
		adapters:    adapters,
		policy:      policy,
		events:      nopPublisher{},
		metrics:     nopMetrics{},
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		callTimeout: DefaultCallTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Balance returns the ledger balance together with the current withdrawal ceiling.
func (u *WithdrawalUseCase) Balance(ctx context.Context) (model.BalanceSummary, error) {
	balance, err := u.getBalance(ctx)
	if err != nil {
		return model.BalanceSummary{}, err
	}
	return model.BalanceSummary{
		Balance:       balance,
		MaxWithdrawal: u.policy.ComputeMax(balance),
		ServerFee:     u.policy.ComputeFee(),
	}, nil
}

// GetWithdrawal returns the stored request.
func (u *WithdrawalUseCase) GetWithdrawal(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return model.WithdrawalRequest{}, domainErrors.Validation(domainErrors.ReasonMissingField, "Missing required fields: hash")
	}
	return u.repo.Lookup(ctx, fingerprint)
}

// RequestWithdrawal validates the request, mints server addresses and stores a Created request.
func (u *WithdrawalUseCase) RequestWithdrawal(ctx context.Context, destination string, amount float64, chain string) (model.WithdrawalRequest, error) {
	req, err := u.requestWithdrawal(ctx, destination, amount, chain)
	if err != nil {
		u.metrics.RequestOutcome(domainErrors.KindOf(err))
		return model.WithdrawalRequest{}, err
	}
	u.metrics.RequestOutcome("created")
	return req, nil
}

func (u *WithdrawalUseCase) requestWithdrawal(ctx context.Context, destination string, amount float64, chain string) (model.WithdrawalRequest, error) {
	destination = strings.TrimSpace(destination)
	chain = strings.TrimSpace(chain)
	if err := RequireFields([][2]string{
		{"withdrawal_destination", destination},
		{"layer_2_chain_name", chain},
	}); err != nil {
		return model.WithdrawalRequest{}, err
	}
	adapter, ok := u.adapters.Adapter(chain)
	if !ok {
		return model.WithdrawalRequest{}, domainErrors.Validation(domainErrors.ReasonUnknownChain, "Unknown layer 2 chain: %s", chain)
	}
	if err := ValidateAmount(amount); err != nil {
		return model.WithdrawalRequest{}, err
	}
	sats := int64(amount)

	balance, err := u.getBalance(ctx)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	if limit := u.policy.ComputeMax(balance); sats > limit {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrAmountExceedsLimit,
			"Withdrawal amount exceeds maximum allowed (%d sats)", limit)
	}

	validation, err := u.validateAddress(ctx, destination)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	if !validation.Valid {
		msg := "Invalid L1 BTC address"
		if validation.Reason != "" {
			msg += ": " + validation.Reason
		}
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrInvalidDestination, "%s", msg)
	}

	l2Address, err := u.l2NewAddress(ctx, chain, adapter)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	l1Address, err := u.l1NewAddress(ctx)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	now := u.now().UTC().Truncate(time.Millisecond)
	req := model.WithdrawalRequest{
		Destination:     destination,
		Amount:          sats,
		L2Chain:         chain,
		ServerL1Address: l1Address,
		ServerL2Address: l2Address,
		ServerFee:       u.policy.ComputeFee(),
		State:           model.WithdrawalStateCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	fingerprint, err := u.repo.Insert(ctx, req)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	req.Fingerprint = fingerprint

	u.log.Info("withdrawal request created",
		slog.String("fingerprint", fingerprint),
		slog.String("chain", chain),
		slog.Int64("amount", sats),
	)
	u.publish(ctx, model.EventWithdrawalCreated, req)
	return req, nil
}

// ConfirmPayment verifies the L2 payment for fingerprint and pays out on the mainchain.
// PaymentNotVerified and PayoutFailed outcomes are returned as a Failed request with a nil error.
func (u *WithdrawalUseCase) ConfirmPayment(ctx context.Context, fingerprint, l2TxID string) (model.WithdrawalRequest, error) {
	req, err := u.confirmPayment(ctx, fingerprint, l2TxID)
	if err != nil {
		u.metrics.ConfirmationOutcome(domainErrors.KindOf(err))
		return req, err
	}
	u.metrics.ConfirmationOutcome(string(req.State))
	return req, nil
}

func (u *WithdrawalUseCase) confirmPayment(ctx context.Context, fingerprint, l2TxID string) (model.WithdrawalRequest, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	l2TxID = strings.TrimSpace(l2TxID)
	if err := RequireFields([][2]string{{"hash", fingerprint}, {"txid", l2TxID}}); err != nil {
		return model.WithdrawalRequest{}, err
	}

	req, err := u.repo.Lookup(ctx, fingerprint)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	if req.State != model.WithdrawalStateCreated {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrInvalidTransition,
			"Withdrawal request is already %s", strings.ToLower(string(req.State)))
	}
	adapter, ok := u.adapters.Adapter(req.L2Chain)
	if !ok {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrAdapterUnavailable,
			"No adapter registered for %s", req.L2Chain)
	}

	paid, err := u.verifyPayment(ctx, adapter, req, l2TxID)
	if err != nil {
		u.log.Warn("payment verification failed",
			slog.String("fingerprint", fingerprint),
			slog.String("chain", req.L2Chain),
			slog.Any("error", err),
		)
		return model.WithdrawalRequest{}, err
	}
	if !paid {
		failed, err := u.transition(ctx, fingerprint, model.WithdrawalStateCreated, model.WithdrawalStateFailed, model.StateUpdate{
			FailureReason: model.FailureReasonPaymentNotVerified,
			FailureDetail: "Payment not verified",
			At:            u.now().UTC(),
		})
		if err != nil {
			return model.WithdrawalRequest{}, err
		}
		u.log.Warn("payment not verified",
			slog.String("fingerprint", fingerprint),
			slog.String("chain", req.L2Chain),
			slog.String("l2_tx_id", l2TxID),
		)
		return failed, nil
	}

	now := u.now().UTC()
	req, err = u.transition(ctx, fingerprint, model.WithdrawalStateCreated, model.WithdrawalStatePaid, model.StateUpdate{
		L2TxID: l2TxID,
		PaidAt: now,
		At:     now,
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	// The payout must not be abandoned once Paid is recorded, even if the caller goes away.
	detached := context.WithoutCancel(ctx)
	payoutTxID, err := u.sendToAddress(detached, req.Destination, req.Amount)
	if err != nil {
		if domainErrors.Retryable(err) {
			u.log.Error("payout outcome unknown, request left paid",
				slog.String("fingerprint", fingerprint),
				slog.String("chain", req.L2Chain),
				slog.Any("error", err),
			)
			return req, domainErrors.Wrap(domainErrors.ErrAdapterUnavailable, err,
				"Payout outcome unknown, request %s remains paid", fingerprint)
		}
		failed, terr := u.transition(detached, fingerprint, model.WithdrawalStatePaid, model.WithdrawalStateFailed, model.StateUpdate{
			FailureReason: model.FailureReasonPayoutFailed,
			FailureDetail: err.Error(),
			At:            u.now().UTC(),
		})
		if terr != nil {
			return req, terr
		}
		u.log.Warn("payout failed",
			slog.String("fingerprint", fingerprint),
			slog.String("chain", req.L2Chain),
			slog.Any("error", err),
		)
		return failed, nil
	}

	completed, err := u.transition(detached, fingerprint, model.WithdrawalStatePaid, model.WithdrawalStateCompleted, model.StateUpdate{
		PayoutTxID: payoutTxID,
		At:         u.now().UTC(),
	})
	if err != nil {
		u.log.Error("payout sent but completion not recorded",
			slog.String("fingerprint", fingerprint),
			slog.String("payout_tx_id", payoutTxID),
			slog.Any("error", err),
		)
		return req, err
	}
	u.log.Info("withdrawal completed",
		slog.String("fingerprint", fingerprint),
		slog.String("chain", req.L2Chain),
		slog.String("payout_tx_id", payoutTxID),
	)
	return completed, nil
}

func (u *WithdrawalUseCase) transition(ctx context.Context, fingerprint string, from, to model.WithdrawalState, update model.StateUpdate) (model.WithdrawalRequest, error) {
	req, err := u.repo.Transition(ctx, fingerprint, from, to, update)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrInvalidTransition) {
			u.log.Error("state transition failed",
				slog.String("fingerprint", fingerprint),
				slog.String("from", string(from)),
				slog.String("to", string(to)),
				slog.Any("error", err),
			)
		}
		return model.WithdrawalRequest{}, err
	}
	u.log.Info("withdrawal state changed",
		slog.String("fingerprint", fingerprint),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	u.publish(ctx, model.EventTypeFor(to), req)
	return req, nil
}

func (u *WithdrawalUseCase) publish(ctx context.Context, t model.EventType, req model.WithdrawalRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.callTimeout)
	defer cancel()
	if err := u.events.Publish(ctx, model.NewWithdrawalEvent(t, req, u.now().UTC())); err != nil {
		u.log.Warn("publish withdrawal event",
			slog.String("fingerprint", req.Fingerprint),
			slog.String("type", string(t)),
			slog.Any("error", err),
		)
	}
}

func (u *WithdrawalUseCase) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, u.callTimeout)
}

func (u *WithdrawalUseCase) observe(target, operation string, start time.Time, err error) {
	u.metrics.ExternalCall(target, operation, err, u.now().Sub(start))
}

func (u *WithdrawalUseCase) getBalance(ctx context.Context) (int64, error) {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	start := u.now()
	balance, err := u.ledger.GetBalance(ctx)
	u.observe(TargetLedger, "getbalance", start, err)
	return balance, err
}

func (u *WithdrawalUseCase) validateAddress(ctx context.Context, address string) (model.AddressValidation, error) {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	start := u.now()
	v, err := u.ledger.ValidateAddress(ctx, address)
	u.observe(TargetLedger, "validateaddress", start, err)
	return v, err
}

func (u *WithdrawalUseCase) l1NewAddress(ctx context.Context) (string, error) {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	start := u.now()
	addr, err := u.ledger.NewAddress(ctx)
	u.observe(TargetLedger, "getnewaddress", start, err)
	if err == nil && addr == "" {
		err = domainErrors.New(domainErrors.ErrLedger, "ledger returned an empty address")
	}
	return addr, err
}

func (u *WithdrawalUseCase) sendToAddress(ctx context.Context, address string, amount int64) (string, error) {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	start := u.now()
	txID, err := u.ledger.SendToAddress(ctx, address, amount)
	u.observe(TargetLedger, "sendtoaddress", start, err)
	return txID, err
}

func (u *WithdrawalUseCase) l2NewAddress(ctx context.Context, chain string, adapter gateway.L2Adapter) (string, error) {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	start := u.now()
	addr, err := adapter.NewAddress(ctx)
	u.observe(TargetL2, "new_address", start, err)
	if err == nil && addr == "" {
		err = domainErrors.New(domainErrors.ErrAdapterError, "%s returned an empty address", chain)
	}
	return addr, err
}

func (u *WithdrawalUseCase) verifyPayment(ctx context.Context, adapter gateway.L2Adapter, req model.WithdrawalRequest, l2TxID string) (bool, error) {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	start := u.now()
	ok, err := adapter.VerifyPayment(ctx, l2TxID, req.ServerL2Address, req.Amount)
	u.observe(TargetL2, "verify_payment", start, err)
	return ok, err
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.WithdrawalEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RequestOutcome(string)                             {}
func (nopMetrics) ConfirmationOutcome(string)                        {}
func (nopMetrics) ExternalCall(string, string, error, time.Duration) {}
