package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/test"
)

const destination = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"

type fixture struct {
	repo    *test.WithdrawalRepositoryStub
	ledger  *test.LedgerStub
	thunder *test.L2AdapterStub
	events  *test.EventPublisherStub
	metrics *test.MetricsRecorderStub
	uc      *WithdrawalUseCase
}

func newFixture(balance int64) *fixture {
	f := &fixture{
		repo:    test.NewWithdrawalRepositoryStub(),
		ledger:  &test.LedgerStub{Balance: balance},
		thunder: &test.L2AdapterStub{Address: "thunder-deposit", Paid: true},
		events:  &test.EventPublisherStub{},
		metrics: &test.MetricsRecorderStub{},
	}
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	f.uc = NewWithdrawalUseCase(
		f.repo,
		f.ledger,
		test.AdapterSet{"Thunder": f.thunder},
		NewFeePolicy(1000, 1000),
		WithEventPublisher(f.events),
		WithMetrics(f.metrics),
		WithCallTimeout(time.Second),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Millisecond)
			return clock
		}),
	)
	return f
}

func (f *fixture) create(t *testing.T, amount float64) model.WithdrawalRequest {
	t.Helper()
	req, err := f.uc.RequestWithdrawal(context.Background(), destination, amount, "Thunder")
	if err != nil {
		t.Fatalf("RequestWithdrawal returned error: %v", err)
	}
	return req
}

func TestRequestWithdrawalCreatesRequest(t *testing.T) {
	f := newFixture(1_000_000)

	req := f.create(t, 50000)

	if req.State != model.WithdrawalStateCreated {
		t.Fatalf("expected CREATED, got %s", req.State)
	}
	if req.ServerFee != 1000 {
		t.Fatalf("expected fee 1000, got %d", req.ServerFee)
	}
	if req.Amount != 50000 || req.Destination != destination || req.L2Chain != "Thunder" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.ServerL2Address != "thunder-deposit" || req.ServerL1Address == "" {
		t.Fatalf("expected server addresses, got %+v", req)
	}
	if req.Fingerprint == "" || req.Fingerprint != model.ComputeFingerprint(req) {
		t.Fatalf("fingerprint mismatch: %q", req.Fingerprint)
	}
	stored, ok := f.repo.Get(req.Fingerprint)
	if !ok || stored.State != model.WithdrawalStateCreated {
		t.Fatalf("expected stored request, got %+v", stored)
	}
	if types := f.events.Types(); len(types) != 1 || types[0] != model.EventWithdrawalCreated {
		t.Fatalf("unexpected events %v", types)
	}
	if requests, _ := f.metrics.Snapshot(); requests["created"] != 1 {
		t.Fatalf("unexpected metrics %v", requests)
	}
}

func TestRequestWithdrawalUniqueFingerprints(t *testing.T) {
	f := newFixture(1_000_000)
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		req := f.create(t, 1000)
		if _, dup := seen[req.Fingerprint]; dup {
			t.Fatalf("fingerprint %s repeated", req.Fingerprint)
		}
		seen[req.Fingerprint] = struct{}{}
	}
}

func TestRequestWithdrawalLimitBoundary(t *testing.T) {
	f := newFixture(1_000_000)

	if _, err := f.uc.RequestWithdrawal(context.Background(), destination, 100000, "Thunder"); err != nil {
		t.Fatalf("amount equal to max must succeed: %v", err)
	}

	_, err := f.uc.RequestWithdrawal(context.Background(), destination, 100001, "Thunder")
	if !errors.Is(err, domainErrors.ErrAmountExceedsLimit) {
		t.Fatalf("expected AmountExceedsLimit, got %v", err)
	}
	if f.repo.Len() != 1 {
		t.Fatalf("expected one stored request, got %d", f.repo.Len())
	}
}

func TestRequestWithdrawalUnknownChain(t *testing.T) {
	f := newFixture(1_000_000)

	_, err := f.uc.RequestWithdrawal(context.Background(), destination, 50000, "Unknown")

	if !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if domainErrors.ReasonOf(err) != domainErrors.ReasonUnknownChain {
		t.Fatalf("unexpected reason %q", domainErrors.ReasonOf(err))
	}
	if addresses, _ := f.thunder.Calls(); addresses != 0 || f.ledger.NewAddressCalls() != 0 {
		t.Fatal("no address may be minted for an unknown chain")
	}
	if f.repo.Len() != 0 {
		t.Fatal("no request may be stored for an unknown chain")
	}
	if requests, _ := f.metrics.Snapshot(); requests["ValidationError"] != 1 {
		t.Fatalf("unexpected metrics %v", requests)
	}
}

func TestRequestWithdrawalValidation(t *testing.T) {
	cases := []struct {
		name        string
		destination string
		amount      float64
		chain       string
		reason      string
	}{
		{"missing destination", "", 1000, "Thunder", domainErrors.ReasonMissingField},
		{"missing chain", destination, 1000, " ", domainErrors.ReasonMissingField},
		{"zero amount", destination, 0, "Thunder", domainErrors.ReasonNonPositiveAmount},
		{"negative amount", destination, -10, "Thunder", domainErrors.ReasonNonPositiveAmount},
		{"fractional amount", destination, 10.5, "Thunder", domainErrors.ReasonFractionalAmount},
		{"amount beyond int64", destination, 1e20, "Thunder", domainErrors.ReasonAmountOutOfRange},
		{"amount beyond supply", destination, MaxSatoshis + 1, "Thunder", domainErrors.ReasonAmountOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(1_000_000)
			_, err := f.uc.RequestWithdrawal(context.Background(), tc.destination, tc.amount, tc.chain)
			if !errors.Is(err, domainErrors.ErrValidation) || domainErrors.ReasonOf(err) != tc.reason {
				t.Fatalf("expected validation reason %q, got %v", tc.reason, err)
			}
			if f.repo.Len() != 0 {
				t.Fatal("invalid input must not be stored")
			}
		})
	}
}

func TestRequestWithdrawalMissingFieldsListed(t *testing.T) {
	f := newFixture(1_000_000)
	_, err := f.uc.RequestWithdrawal(context.Background(), "", 1000, "")
	if err == nil || err.Error() != "Missing required fields: withdrawal_destination, layer_2_chain_name" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRequestWithdrawalInvalidDestination(t *testing.T) {
	f := newFixture(1_000_000)
	f.ledger.ValidateFn = func(context.Context, string) (model.AddressValidation, error) {
		return model.AddressValidation{Valid: false, Reason: "Invalid checksum"}, nil
	}

	_, err := f.uc.RequestWithdrawal(context.Background(), "bogus", 1000, "Thunder")

	if !errors.Is(err, domainErrors.ErrInvalidDestination) {
		t.Fatalf("expected InvalidDestinationAddress, got %v", err)
	}
	if err.Error() != "Invalid L1 BTC address: Invalid checksum" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if addresses, _ := f.thunder.Calls(); addresses != 0 {
		t.Fatal("addresses must not be minted for an invalid destination")
	}
}

func TestRequestWithdrawalLedgerFailure(t *testing.T) {
	f := newFixture(0)
	f.ledger.BalanceErr = domainErrors.New(domainErrors.ErrConnection, "connection refused")

	_, err := f.uc.RequestWithdrawal(context.Background(), destination, 1000, "Thunder")

	if !errors.Is(err, domainErrors.ErrConnection) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestRequestWithdrawalAddressFailureStoresNothing(t *testing.T) {
	t.Run("l2", func(t *testing.T) {
		f := newFixture(1_000_000)
		f.thunder.AddressErr = domainErrors.New(domainErrors.ErrAdapterUnavailable, "thunder down")
		_, err := f.uc.RequestWithdrawal(context.Background(), destination, 1000, "Thunder")
		if !errors.Is(err, domainErrors.ErrAdapterUnavailable) {
			t.Fatalf("expected AdapterUnavailable, got %v", err)
		}
		if f.repo.Len() != 0 || f.ledger.NewAddressCalls() != 0 {
			t.Fatal("nothing may be stored or minted after L2 failure")
		}
	})
	t.Run("l1", func(t *testing.T) {
		f := newFixture(1_000_000)
		f.ledger.NewAddressFn = func(context.Context) (string, error) {
			return "", domainErrors.New(domainErrors.ErrAuth, "unauthorized")
		}
		_, err := f.uc.RequestWithdrawal(context.Background(), destination, 1000, "Thunder")
		if !errors.Is(err, domainErrors.ErrAuth) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if f.repo.Len() != 0 {
			t.Fatal("nothing may be stored after L1 failure")
		}
	})
	t.Run("empty l2 address", func(t *testing.T) {
		f := newFixture(1_000_000)
		f.uc.adapters = test.AdapterSet{"Thunder": emptyAddressAdapter{}}
		_, err := f.uc.RequestWithdrawal(context.Background(), destination, 1000, "Thunder")
		if !errors.Is(err, domainErrors.ErrAdapterError) {
			t.Fatalf("expected AdapterError, got %v", err)
		}
	})
}

type emptyAddressAdapter struct{}

func (emptyAddressAdapter) NewAddress(context.Context) (string, error) { return "", nil }
func (emptyAddressAdapter) VerifyPayment(context.Context, string, string, int64) (bool, error) {
	return false, nil
}

func TestRequestWithdrawalDuplicate(t *testing.T) {
	f := newFixture(1_000_000)
	f.repo.InsertFn = func(context.Context, model.WithdrawalRequest) (string, error) {
		return "", domainErrors.New(domainErrors.ErrDuplicateRequest, "duplicate")
	}
	_, err := f.uc.RequestWithdrawal(context.Background(), destination, 1000, "Thunder")
	if !errors.Is(err, domainErrors.ErrDuplicateRequest) {
		t.Fatalf("expected DuplicateRequest, got %v", err)
	}
	if len(f.events.Types()) != 0 {
		t.Fatal("no event may be published for a rejected insert")
	}
}

func TestConfirmPaymentCompletes(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)

	got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}
	if got.State != model.WithdrawalStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.State)
	}
	if got.L2TxID != "txid123" || got.PaidAt == nil || got.PayoutTxID == "" {
		t.Fatalf("expected paid fields, got %+v", got)
	}
	sends := f.ledger.SendCalls()
	if len(sends) != 1 || sends[0] != (test.SendCall{Address: destination, Amount: 50000}) {
		t.Fatalf("unexpected payouts %+v", sends)
	}
	types := f.events.Types()
	want := []model.EventType{model.EventWithdrawalCreated, model.EventWithdrawalPaid, model.EventWithdrawalCompleted}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("unexpected events %v", types)
		}
	}
	if _, confirmations := f.metrics.Snapshot(); confirmations["COMPLETED"] != 1 {
		t.Fatalf("unexpected metrics %v", confirmations)
	}
}

func TestConfirmPaymentNotVerified(t *testing.T) {
	f := newFixture(1_000_000)
	f.thunder.Paid = false
	req := f.create(t, 50000)

	got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if err != nil {
		t.Fatalf("business outcome must not be an error: %v", err)
	}
	if got.State != model.WithdrawalStateFailed || got.FailureReason != model.FailureReasonPaymentNotVerified {
		t.Fatalf("expected FAILED/PaymentNotVerified, got %+v", got)
	}
	if len(f.ledger.SendCalls()) != 0 {
		t.Fatal("payout must not happen when payment is not verified")
	}
}

func TestConfirmPaymentTwice(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)
	if _, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123"); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	_, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	if len(f.ledger.SendCalls()) != 1 {
		t.Fatalf("expected a single payout, got %d", len(f.ledger.SendCalls()))
	}
}

func TestConfirmPaymentConcurrentPaysOnce(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		rejected  int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && got.State == model.WithdrawalStateCompleted:
				completed++
			case errors.Is(err, domainErrors.ErrInvalidTransition):
				rejected++
			default:
				t.Errorf("unexpected outcome %+v, %v", got, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if completed != 1 || rejected != callers-1 {
		t.Fatalf("expected 1 completion and %d rejections, got %d/%d", callers-1, completed, rejected)
	}
	if len(f.ledger.SendCalls()) != 1 {
		t.Fatalf("expected exactly one payout, got %d", len(f.ledger.SendCalls()))
	}
}

func TestConfirmPaymentAdapterErrorKeepsCreated(t *testing.T) {
	for _, kind := range []error{domainErrors.ErrAdapterUnavailable, domainErrors.ErrAdapterError} {
		t.Run(kind.Error(), func(t *testing.T) {
			f := newFixture(1_000_000)
			req := f.create(t, 50000)
			f.thunder.VerifyErr = domainErrors.New(kind, "thunder failed")

			_, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

			if !errors.Is(err, kind) {
				t.Fatalf("expected %v, got %v", kind, err)
			}
			stored, _ := f.repo.Get(req.Fingerprint)
			if stored.State != model.WithdrawalStateCreated {
				t.Fatalf("state must stay CREATED, got %s", stored.State)
			}

			f.thunder.VerifyErr = nil
			got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")
			if err != nil || got.State != model.WithdrawalStateCompleted {
				t.Fatalf("retry must succeed, got %+v, %v", got, err)
			}
		})
	}
}

func TestConfirmPaymentVerifyTimeout(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)
	f.uc.callTimeout = 10 * time.Millisecond
	f.thunder.VerifyFn = func(ctx context.Context, _, _ string, _ int64) (bool, error) {
		<-ctx.Done()
		return false, domainErrors.Wrap(domainErrors.ErrAdapterUnavailable, ctx.Err(), "thunder timed out")
	}

	_, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if !errors.Is(err, domainErrors.ErrAdapterUnavailable) {
		t.Fatalf("expected AdapterUnavailable, got %v", err)
	}
	if stored, _ := f.repo.Get(req.Fingerprint); stored.State != model.WithdrawalStateCreated {
		t.Fatalf("timeout must not change state, got %s", stored.State)
	}
}

func TestConfirmPaymentPayoutFailed(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)
	f.ledger.SendToAddressFn = func(context.Context, string, int64) (string, error) {
		return "", domainErrors.New(domainErrors.ErrLedger, "Insufficient funds")
	}

	got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if err != nil {
		t.Fatalf("payout failure is a business outcome: %v", err)
	}
	if got.State != model.WithdrawalStateFailed || got.FailureReason != model.FailureReasonPayoutFailed {
		t.Fatalf("expected FAILED/PayoutFailed, got %+v", got)
	}
	if got.L2TxID != "txid123" || got.FailureDetail != "Insufficient funds" {
		t.Fatalf("expected paid fields and detail, got %+v", got)
	}
}

func TestConfirmPaymentPayoutUnknownStaysPaid(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)
	f.ledger.SendToAddressFn = func(context.Context, string, int64) (string, error) {
		return "", domainErrors.New(domainErrors.ErrConnection, "connection reset")
	}

	got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if !errors.Is(err, domainErrors.ErrAdapterUnavailable) || !errors.Is(err, domainErrors.ErrConnection) {
		t.Fatalf("expected AdapterUnavailable wrapping ConnectionError, got %v", err)
	}
	if got.State != model.WithdrawalStatePaid {
		t.Fatalf("expected PAID, got %s", got.State)
	}
	if stored, _ := f.repo.Get(req.Fingerprint); stored.State != model.WithdrawalStatePaid {
		t.Fatalf("expected stored PAID, got %s", stored.State)
	}
	if _, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123"); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("paid request must not be confirmed again, got %v", err)
	}
}

func TestConfirmPaymentPayoutSurvivesCallerCancel(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)
	ctx, cancel := context.WithCancel(context.Background())
	f.thunder.VerifyFn = func(context.Context, string, string, int64) (bool, error) {
		cancel()
		return true, nil
	}
	f.ledger.SendToAddressFn = func(ctx context.Context, _ string, _ int64) (string, error) {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "payout", nil
	}

	got, err := f.uc.ConfirmPayment(ctx, req.Fingerprint, "txid123")

	if err != nil || got.State != model.WithdrawalStateCompleted {
		t.Fatalf("expected COMPLETED after caller cancel, got %+v, %v", got, err)
	}
}

func TestConfirmPaymentLookupErrors(t *testing.T) {
	f := newFixture(1_000_000)

	_, err := f.uc.ConfirmPayment(context.Background(), "", "txid")
	if !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	_, err = f.uc.ConfirmPayment(context.Background(), "abc", "")
	if !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	_, err = f.uc.ConfirmPayment(context.Background(), "deadbeef", "txid")
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected RequestNotFound, got %v", err)
	}
}

func TestConfirmPaymentEventFailureIgnored(t *testing.T) {
	f := newFixture(1_000_000)
	f.events.Err = errors.New("kafka down")
	req := f.create(t, 50000)

	got, err := f.uc.ConfirmPayment(context.Background(), req.Fingerprint, "txid123")

	if err != nil || got.State != model.WithdrawalStateCompleted {
		t.Fatalf("event failures must not affect outcome, got %+v, %v", got, err)
	}
}

func TestBalanceSummary(t *testing.T) {
	f := newFixture(1_000_000)

	summary, err := f.uc.Balance(context.Background())

	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if summary != (model.BalanceSummary{Balance: 1_000_000, MaxWithdrawal: 100_000, ServerFee: 1000}) {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestGetWithdrawal(t *testing.T) {
	f := newFixture(1_000_000)
	req := f.create(t, 50000)

	got, err := f.uc.GetWithdrawal(context.Background(), req.Fingerprint)
	if err != nil || got.Fingerprint != req.Fingerprint {
		t.Fatalf("unexpected lookup %+v, %v", got, err)
	}
	if _, err := f.uc.GetWithdrawal(context.Background(), " "); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
