package test

import (
	"context"
	"sort"
	"sync"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
)

// WithdrawalRepositoryStub keeps requests in-memory and lets tests override every call.
type WithdrawalRepositoryStub struct {
	InsertFn     func(context.Context, model.WithdrawalRequest) (string, error)
	LookupFn     func(context.Context, string) (model.WithdrawalRequest, error)
	TransitionFn func(context.Context, string, model.WithdrawalState, model.WithdrawalState, model.StateUpdate) (model.WithdrawalRequest, error)
	ListFn       func(context.Context, model.WithdrawalState, model.FailureReason, int) ([]model.WithdrawalRequest, error)

	mu          sync.Mutex
	Items       map[string]model.WithdrawalRequest
	Inserted    []model.WithdrawalRequest
	Transitions []TransitionCall
}

// TransitionCall records a Transition invocation.
type TransitionCall struct {
	Fingerprint string
	From, To    model.WithdrawalState
	Update      model.StateUpdate
}

// NewWithdrawalRepositoryStub constructs stub repository with initialized storage.
func NewWithdrawalRepositoryStub() *WithdrawalRepositoryStub {
	return &WithdrawalRepositoryStub{Items: make(map[string]model.WithdrawalRequest)}
}

// Insert stores req under its fingerprint unless it already exists.
func (s *WithdrawalRepositoryStub) Insert(ctx context.Context, req model.WithdrawalRequest) (string, error) {
	s.mu.Lock()
	s.Inserted = append(s.Inserted, req)
	s.mu.Unlock()
	if s.InsertFn != nil {
		return s.InsertFn(ctx, req)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Items == nil {
		s.Items = make(map[string]model.WithdrawalRequest)
	}
	req.Fingerprint = model.ComputeFingerprint(req)
	if _, ok := s.Items[req.Fingerprint]; ok {
		return "", domainErrors.New(domainErrors.ErrDuplicateRequest, "duplicate request %s", req.Fingerprint)
	}
	s.Items[req.Fingerprint] = req
	return req.Fingerprint, nil
}

// Lookup returns stored request or not found.
func (s *WithdrawalRepositoryStub) Lookup(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error) {
	if s.LookupFn != nil {
		return s.LookupFn(ctx, fingerprint)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.Items[fingerprint]
	if !ok {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrNotFound, "Withdrawal request not found")
	}
	return req, nil
}

// Transition applies a compare-and-swap on the stored state.
func (s *WithdrawalRepositoryStub) Transition(ctx context.Context, fingerprint string, from, to model.WithdrawalState, update model.StateUpdate) (model.WithdrawalRequest, error) {
	s.mu.Lock()
	s.Transitions = append(s.Transitions, TransitionCall{Fingerprint: fingerprint, From: from, To: to, Update: update})
	s.mu.Unlock()
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, fingerprint, from, to, update)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.Items[fingerprint]
	if !ok {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrNotFound, "Withdrawal request not found")
	}
	if req.State != from || !model.CanTransition(from, to) || !req.Apply(to, update) {
		return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrInvalidTransition, "cannot move %s to %s", req.State, to)
	}
	s.Items[fingerprint] = req
	return req, nil
}

// ListByState returns stored requests in state, optionally with reason, ordered by UpdatedAt.
func (s *WithdrawalRepositoryStub) ListByState(ctx context.Context, state model.WithdrawalState, reason model.FailureReason, limit int) ([]model.WithdrawalRequest, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, state, reason, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WithdrawalRequest
	for _, req := range s.Items {
		if req.State == state && (reason == "" || req.FailureReason == reason) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the stored request without going through Lookup overrides.
func (s *WithdrawalRepositoryStub) Get(fingerprint string) (model.WithdrawalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.Items[fingerprint]
	return req, ok
}

// Len reports the number of stored requests.
func (s *WithdrawalRepositoryStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Items)
}
