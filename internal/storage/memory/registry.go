package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// Registry keeps withdrawal requests in process memory. One lock guards every
// operation, so a Transition is atomic with respect to all other calls.
type Registry struct {
	mu       sync.RWMutex
	requests map[string]model.WithdrawalRequest
	now      func() time.Time
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		requests: make(map[string]model.WithdrawalRequest),
		now:      time.Now,
	}
}

// Insert stores req under its computed fingerprint.
func (r *Registry) Insert(ctx context.Context, req model.WithdrawalRequest) (string, error) {
	req.Fingerprint = model.ComputeFingerprint(req)
	req.State = model.WithdrawalStateCreated
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[req.Fingerprint]; exists {
		return "", domainErrors.New(domainErrors.ErrDuplicateRequest, "Withdrawal request %s already exists", req.Fingerprint)
	}
	r.requests[req.Fingerprint] = req
	return req.Fingerprint, nil
}

// Lookup returns a copy of the stored request.
func (r *Registry) Lookup(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[fingerprint]
	if !ok {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrNotFound, "Withdrawal request not found")
	}
	return copyRequest(req), nil
}

// Transition moves the request from one state to another if it is still in from.
func (r *Registry) Transition(ctx context.Context, fingerprint string, from, to model.WithdrawalState, update model.StateUpdate) (model.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[fingerprint]
	if !ok {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrNotFound, "Withdrawal request not found")
	}
	if req.State != from || !model.CanTransition(from, to) {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrInvalidTransition,
			"Withdrawal request is %s, expected %s", req.State, from)
	}
	if update.At.IsZero() {
		update.At = r.now().UTC()
	}
	req = copyRequest(req)
	if !req.Apply(to, update) {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrInvalidTransition, "Incomplete update for %s", to)
	}
	r.requests[fingerprint] = req
	return copyRequest(req), nil
}

// ListByState returns up to limit requests in state, optionally with reason, ordered by UpdatedAt.
func (r *Registry) ListByState(ctx context.Context, state model.WithdrawalState, reason model.FailureReason, limit int) ([]model.WithdrawalRequest, error) {
	r.mu.RLock()
	out := make([]model.WithdrawalRequest, 0)
	for _, req := range r.requests {
		if req.State == state && (reason == "" || req.FailureReason == reason) {
			out = append(out, copyRequest(req))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Fingerprint < out[j].Fingerprint
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// HealthCheck always succeeds.
func (r *Registry) HealthCheck(context.Context) error { return nil }

// Len reports the number of stored requests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.requests)
}

func copyRequest(req model.WithdrawalRequest) model.WithdrawalRequest {
	if req.PaidAt != nil {
		paidAt := *req.PaidAt
		req.PaidAt = &paidAt
	}
	return req
}
