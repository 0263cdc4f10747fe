package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/gateway"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// SendCall records a SendToAddress invocation.
type SendCall struct {
	Address string
	Amount  int64
}

// LedgerStub simulates the mainchain wallet.
type LedgerStub struct {
	Balance    int64
	BalanceErr error

	NewAddressFn    func(context.Context) (string, error)
	ValidateFn      func(context.Context, string) (model.AddressValidation, error)
	SendToAddressFn func(context.Context, string, int64) (string, error)

	mu           sync.Mutex
	Sends        []SendCall
	AddressCalls int
}

// GetBalance returns the configured balance.
func (l *LedgerStub) GetBalance(ctx context.Context) (int64, error) {
	if l.BalanceErr != nil {
		return 0, l.BalanceErr
	}
	return l.Balance, nil
}

// NewAddress returns a unique L1 address unless overridden.
func (l *LedgerStub) NewAddress(ctx context.Context) (string, error) {
	l.mu.Lock()
	l.AddressCalls++
	n := l.AddressCalls
	l.mu.Unlock()
	if l.NewAddressFn != nil {
		return l.NewAddressFn(ctx)
	}
	return fmt.Sprintf("tb1qserver%d", n), nil
}

// ValidateAddress accepts every address unless overridden.
func (l *LedgerStub) ValidateAddress(ctx context.Context, address string) (model.AddressValidation, error) {
	if l.ValidateFn != nil {
		return l.ValidateFn(ctx, address)
	}
	return model.AddressValidation{Valid: true}, nil
}

// SendToAddress records the payout and returns a txid.
func (l *LedgerStub) SendToAddress(ctx context.Context, address string, amount int64) (string, error) {
	l.mu.Lock()
	l.Sends = append(l.Sends, SendCall{Address: address, Amount: amount})
	n := len(l.Sends)
	l.mu.Unlock()
	if l.SendToAddressFn != nil {
		return l.SendToAddressFn(ctx, address, amount)
	}
	return fmt.Sprintf("payout%d", n), nil
}

// SendCalls returns a copy of recorded payouts.
func (l *LedgerStub) SendCalls() []SendCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SendCall(nil), l.Sends...)
}

// NewAddressCalls reports how many addresses were minted.
func (l *LedgerStub) NewAddressCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.AddressCalls
}

// L2AdapterStub simulates an L2 system.
type L2AdapterStub struct {
	Address    string
	AddressErr error
	Paid       bool
	VerifyErr  error
	VerifyFn   func(context.Context, string, string, int64) (bool, error)

	mu          sync.Mutex
	AddressHits int
	VerifyHits  int
}

// NewAddress returns the configured address.
func (a *L2AdapterStub) NewAddress(ctx context.Context) (string, error) {
	a.mu.Lock()
	a.AddressHits++
	a.mu.Unlock()
	if a.AddressErr != nil {
		return "", a.AddressErr
	}
	if a.Address == "" {
		return "l2-deposit-address", nil
	}
	return a.Address, nil
}

// VerifyPayment returns the configured verdict.
func (a *L2AdapterStub) VerifyPayment(ctx context.Context, txID, address string, amount int64) (bool, error) {
	a.mu.Lock()
	a.VerifyHits++
	a.mu.Unlock()
	if a.VerifyFn != nil {
		return a.VerifyFn(ctx, txID, address, amount)
	}
	return a.Paid, a.VerifyErr
}

// Calls returns NewAddress and VerifyPayment invocation counts.
func (a *L2AdapterStub) Calls() (addresses, verifications int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AddressHits, a.VerifyHits
}

// AdapterSet maps chain names to adapters.
type AdapterSet map[string]gateway.L2Adapter

// Adapter resolves chain.
func (s AdapterSet) Adapter(chain string) (gateway.L2Adapter, bool) {
	a, ok := s[chain]
	return a, ok
}

// EventPublisherStub collects published events.
type EventPublisherStub struct {
	Err    error
	mu     sync.Mutex
	Events []model.WithdrawalEvent
}

// Publish records event.
func (p *EventPublisherStub) Publish(ctx context.Context, event model.WithdrawalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return p.Err
}

// Types lists the types of recorded events in order.
func (p *EventPublisherStub) Types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.EventType, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.Type)
	}
	return types
}

// MetricsRecorderStub counts recorded outcomes.
type MetricsRecorderStub struct {
	mu            sync.Mutex
	Requests      map[string]int
	Confirmations map[string]int
	Calls         []string
}

// RequestOutcome counts result.
func (m *MetricsRecorderStub) RequestOutcome(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Requests == nil {
		m.Requests = make(map[string]int)
	}
	m.Requests[result]++
}

// ConfirmationOutcome counts state.
func (m *MetricsRecorderStub) ConfirmationOutcome(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Confirmations == nil {
		m.Confirmations = make(map[string]int)
	}
	m.Confirmations[state]++
}

// ExternalCall records target and operation.
func (m *MetricsRecorderStub) ExternalCall(target, operation string, err error, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, target+"."+operation)
}

// Snapshot returns copies of the recorded counters.
func (m *MetricsRecorderStub) Snapshot() (requests, confirmations map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	requests = make(map[string]int, len(m.Requests))
	for k, v := range m.Requests {
		requests[k] = v
	}
	confirmations = make(map[string]int, len(m.Confirmations))
	for k, v := range m.Confirmations {
		confirmations[k] = v
	}
	return requests, confirmations
}
