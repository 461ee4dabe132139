package payment

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var referencePattern = regexp.MustCompile(`^\d{12}$`)

func TestCompletePayment_Insufficient(t *testing.T) {
	calls := 0
	refs := &RandomReferences{intN: func(int) int { calls++; return 1 }}
	_, err := CompletePayment(context.Background(), decimal.NewFromInt(1064), decimal.NewFromInt(1000), time.Now(), refs)
	if !errors.Is(err, ErrAmountInsufficient) {
		t.Fatalf("expected ErrAmountInsufficient, got %v", err)
	}
	var insufficient *AmountInsufficientError
	if !errors.As(err, &insufficient) || !insufficient.Shortfall().Equal(decimal.NewFromInt(64)) {
		t.Fatalf("expected shortfall 64, got %v", err)
	}
	if calls != 0 {
		t.Fatal("reference generated for rejected payment")
	}
}

func TestCompletePayment_Success(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC)
	res, err := CompletePayment(context.Background(), decimal.NewFromInt(1064), decimal.NewFromInt(1100), now, NewRandomReferences())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Change.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("change = %s, want 36", res.Change)
	}
	if !referencePattern.MatchString(res.ReferenceNumber) {
		t.Fatalf("bad reference %q", res.ReferenceNumber)
	}
	if !strings.HasPrefix(res.ReferenceNumber, "20260314") {
		t.Fatalf("reference %q does not start with date", res.ReferenceNumber)
	}
}

func TestCompletePayment_ExactAmount(t *testing.T) {
	res, err := CompletePayment(context.Background(), decimal.RequireFromString("560.00"), decimal.NewFromInt(560), time.Now(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Change.IsZero() {
		t.Fatalf("expected zero change, got %s", res.Change)
	}
}

func TestCompletePayment_NegativeAmount(t *testing.T) {
	_, err := CompletePayment(context.Background(), decimal.Zero, decimal.NewFromInt(-1), time.Now(), nil)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTender(t *testing.T) {
	cases := []struct {
		in, want string
		invalid  bool
	}{
		{in: "1100", want: "1100"},
		{in: "1100.005", want: "1100.01"},
		{in: "1100.004", want: "1100"},
		{in: "99999999.99", want: "99999999.99"},
		{in: "99999999.995", invalid: true},
		{in: "1000000000", invalid: true},
		{in: "-1", invalid: true},
	}
	for _, tc := range cases {
		got, err := Tender(decimal.RequireFromString(tc.in))
		if tc.invalid {
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("Tender(%s): expected validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("Tender(%s) = %s, %v; want %s", tc.in, got, err, tc.want)
		}
	}
}

func TestRandomReferencesPadding(t *testing.T) {
	refs := &RandomReferences{intN: func(int) int { return 7 }}
	got, _ := refs.Next(context.Background(), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if got != "202601020007" {
		t.Fatalf("got %q", got)
	}
}

type fakeCounter struct {
	counts  map[string]int64
	expired map[string]time.Duration
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expired: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expired[key] = ttl
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func TestSequenceReferencesMonotonic(t *testing.T) {
	counter := newFakeCounter()
	refs := NewSequenceReferences(counter, "test")
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first, err := refs.Next(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := refs.Next(context.Background(), now)
	if first != "202603140001" || second != "202603140002" {
		t.Fatalf("got %q, %q", first, second)
	}
	if counter.expired["test:20260314"] == 0 {
		t.Fatal("expected expiry on first increment")
	}

	nextDay, _ := refs.Next(context.Background(), now.AddDate(0, 0, 1))
	if nextDay != "202603150001" {
		t.Fatalf("expected counter reset per day, got %q", nextDay)
	}
}

func TestSequenceReferencesOverflowFallsBack(t *testing.T) {
	counter := newFakeCounter()
	counter.counts["test:20260314"] = 9999
	refs := NewSequenceReferences(counter, "test")
	got, err := refs.Next(context.Background(), time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !referencePattern.MatchString(got) || !strings.HasPrefix(got, "20260314") {
		t.Fatalf("bad fallback reference %q", got)
	}
}

func TestNewTransaction(t *testing.T) {
	now := time.Now()
	appt := model.Appointment{ID: 42, Branch: model.BranchToril}
	svc := model.Service{ID: 1, Name: "Full Groom"}
	addOn := model.Service{ID: 5, Name: "Nail Trim", AddonPrice: model.NewPrice("150")}
	res := Result{Change: decimal.NewFromInt(36), ReferenceNumber: "202603140001"}

	txn := NewTransaction(appt, svc, []model.Service{addOn}, model.Breakdown{Total: decimal.NewFromInt(1064)}, res, decimal.NewFromInt(1100), now)
	if txn.ID == "" || txn.AppointmentID != 42 || txn.Status != model.StatusCompleted {
		t.Fatalf("unexpected transaction %+v", txn)
	}
	if len(txn.AddOns) != 1 || !txn.AddOns[0].Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected add-on lines %+v", txn.AddOns)
	}
	other := NewTransaction(appt, svc, nil, model.Breakdown{}, res, decimal.NewFromInt(1100), now)
	if other.ID == txn.ID {
		t.Fatal("transaction ids must be unique even with equal reference numbers")
	}
}
