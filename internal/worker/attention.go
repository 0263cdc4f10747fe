package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// Attention categories reported by the monitor.
const (
	CategoryStalePaid    = "stale_paid"
	CategoryPayoutFailed = "payout_failed"
)

// StateLister is the subset of the withdrawal registry the monitor reads.
type StateLister interface {
	ListByState(ctx context.Context, state model.WithdrawalState, reason model.FailureReason, limit int) ([]model.WithdrawalRequest, error)
}

// AttentionRecorder receives the per-category counts of every scan.
type AttentionRecorder interface {
	RequestsNeedingAttention(category string, n int)
}

// Snapshot is the outcome of a single scan.
type Snapshot struct {
	// StalePaid holds PAID requests older than the configured age. Their payout
	// either never ran or its outcome was unknown.
	StalePaid []model.WithdrawalRequest
	// PayoutFailed holds requests whose L2 payment was verified but whose L1
	// payout was rejected.
	PayoutFailed []model.WithdrawalRequest
}

// AttentionMonitor periodically reports withdrawals that only an operator can resolve.
// It never changes request state.
type AttentionMonitor struct {
	lister     StateLister
	recorder   AttentionRecorder
	interval   time.Duration
	batchSize  int
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	seen   map[string]struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewAttentionMonitor constructs a monitor. A nil recorder disables metrics.
func NewAttentionMonitor(lister StateLister, recorder AttentionRecorder, interval time.Duration, batchSize int, staleAfter time.Duration, logger *slog.Logger) *AttentionMonitor {
	if batchSize <= 0 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &AttentionMonitor{
		lister:     lister,
		recorder:   recorder,
		interval:   interval,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
		seen:       make(map[string]struct{}),
	}
}

// Start launches the background scan loop.
func (m *AttentionMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.loop(runCtx)
}

// Stop cancels the loop and waits for the running scan to return.
func (m *AttentionMonitor) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *AttentionMonitor) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Scan(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("attention scan failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Scan inspects the registry once, updates the recorder and logs requests not reported before.
func (m *AttentionMonitor) Scan(ctx context.Context) (Snapshot, error) {
	// Oldest first, so every stale PAID request precedes the fresh ones.
	paid, err := m.lister.ListByState(ctx, model.WithdrawalStatePaid, "", m.batchSize)
	if err != nil {
		return Snapshot{}, err
	}
	failed, err := m.lister.ListByState(ctx, model.WithdrawalStateFailed, model.FailureReasonPayoutFailed, m.batchSize)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{PayoutFailed: failed}
	cutoff := m.now().Add(-m.staleAfter)
	for _, req := range paid {
		if req.UpdatedAt.Before(cutoff) {
			snap.StalePaid = append(snap.StalePaid, req)
		}
	}

	if m.recorder != nil {
		m.recorder.RequestsNeedingAttention(CategoryStalePaid, len(snap.StalePaid))
		m.recorder.RequestsNeedingAttention(CategoryPayoutFailed, len(snap.PayoutFailed))
	}
	m.report(snap)
	return snap, nil
}

func (m *AttentionMonitor) report(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string]struct{}, len(snap.StalePaid)+len(snap.PayoutFailed))
	for _, group := range []struct {
		category string
		requests []model.WithdrawalRequest
	}{
		{CategoryStalePaid, snap.StalePaid},
		{CategoryPayoutFailed, snap.PayoutFailed},
	} {
		for _, req := range group.requests {
			key := group.category + ":" + req.Fingerprint
			current[key] = struct{}{}
			if _, ok := m.seen[key]; ok {
				continue
			}
			m.logger.Error("withdrawal needs operator attention",
				slog.String("category", group.category),
				slog.String("fingerprint", req.Fingerprint),
				slog.String("layer_2_chain_name", req.L2Chain),
				slog.String("l2_tx_id", req.L2TxID),
				slog.Int64("amount", req.Amount),
				slog.String("detail", req.FailureDetail),
			)
		}
	}
	m.seen = current
}
