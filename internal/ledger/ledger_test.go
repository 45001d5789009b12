package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

func testIntent(ref string) Intent {
	return Intent{
		StorefrontSlug:  "coffee-corner",
		ProductID:       "prod-1",
		Amount:          decimal.NewFromInt(5),
		Asset:           enums.AssetSOL,
		Reference:       ref,
		MerchantAddress: "merchant-wallet",
		PayerAddress:    "payer-wallet",
	}
}

func TestCreateOpensPendingRecord(t *testing.T) {
	l := New()

	rec, err := l.Create(testIntent("ref-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if rec.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	pending := l.PendingByAccount("merchant-wallet")
	if len(pending) != 1 || pending[0].Reference != "ref-1" {
		t.Fatalf("expected intent in watched index, got %+v", pending)
	}
}

func TestCreateRejectsDuplicateReference(t *testing.T) {
	l := New()

	if _, err := l.Create(testIntent("ref-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := l.Create(testIntent("ref-1"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTryConfirmIsIdempotent(t *testing.T) {
	l := New()
	if _, err := l.Create(testIntent("ref-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	applied, rec, err := l.TryConfirm("ref-1", "sig-1", at)
	if err != nil || !applied {
		t.Fatalf("first confirm applied=%v err=%v", applied, err)
	}
	if rec.Signature != "sig-1" || rec.ConfirmedAt == nil || !rec.ConfirmedAt.Equal(at) {
		t.Fatalf("unexpected record %+v", rec)
	}

	applied, rec2, err := l.TryConfirm("ref-1", "sig-2", time.Now())
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if applied {
		t.Fatalf("second confirm must not apply")
	}
	if rec2.Signature != "sig-1" || !rec2.ConfirmedAt.Equal(at) {
		t.Fatalf("second confirm must leave record unchanged, got %+v", rec2)
	}

	if got := len(l.PendingByAccount("merchant-wallet")); got != 0 {
		t.Fatalf("confirmed intent should leave watched index, got %d", got)
	}
}

func TestTryConfirmBySignatureLookup(t *testing.T) {
	l := New()
	if _, err := l.Create(testIntent("ref-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if applied, _, err := l.TryConfirm("ref-1", "sig-1", time.Now()); err != nil || !applied {
		t.Fatalf("confirm: applied=%v err=%v", applied, err)
	}

	// A webhook retry that only knows the signature resolves to the same
	// record and no-ops.
	applied, rec, err := l.TryConfirm("", "sig-1", time.Now())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if applied || rec.Reference != "ref-1" {
		t.Fatalf("expected no-op on same record, got applied=%v rec=%+v", applied, rec)
	}
}

func TestTryConfirmUnknownKey(t *testing.T) {
	l := New()
	_, _, err := l.TryConfirm("missing", "sig-x", time.Now())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkFailedOnlyFromPending(t *testing.T) {
	l := New()
	rec, err := l.Create(testIntent("ref-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	failed, err := l.MarkFailed(rec.ID, "broadcast rejected")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if failed.Status != enums.PaymentStatusFailed || failed.FailReason != "broadcast rejected" {
		t.Fatalf("unexpected record %+v", failed)
	}

	rec2, err := l.Create(testIntent("ref-2"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if applied, _, err := l.TryConfirm("ref-2", "sig-2", time.Now()); err != nil || !applied {
		t.Fatalf("confirm: applied=%v err=%v", applied, err)
	}

	after, err := l.MarkFailed(rec2.ID, "late failure")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if after.Status != enums.PaymentStatusConfirmed {
		t.Fatalf("confirmed record must never fail, got %s", after.Status)
	}
}

func TestRecordExternalIdempotentOnSignature(t *testing.T) {
	l := New()
	payment := ExternalPayment{
		StorefrontSlug:  "coffee-corner",
		Amount:          decimal.NewFromInt(3),
		Asset:           enums.AssetUSDC,
		MerchantAddress: "merchant-wallet",
		PayerAddress:    "someone",
		Signature:       "sig-direct",
	}

	applied, rec := l.RecordExternal(payment)
	if !applied || rec.ProductID != UnknownProductID {
		t.Fatalf("expected materialized unknown record, applied=%v rec=%+v", applied, rec)
	}

	applied, rec2 := l.RecordExternal(payment)
	if applied {
		t.Fatalf("re-delivery must not apply")
	}
	if rec2.ID != rec.ID {
		t.Fatalf("expected same record on retry")
	}
	if !l.SeenSignature("sig-direct") {
		t.Fatalf("signature should be indexed")
	}
}

func TestTryConfirmRaceExactlyOneWinner(t *testing.T) {
	for round := 0; round < 50; round++ {
		l := New()
		ref := fmt.Sprintf("ref-%d", round)
		if _, err := l.Create(testIntent(ref)); err != nil {
			t.Fatalf("create: %v", err)
		}

		const contenders = 8
		var wg sync.WaitGroup
		start := make(chan struct{})
		results := make([]bool, contenders)

		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				applied, _, err := l.TryConfirm(ref, fmt.Sprintf("sig-%d-%d", round, i), time.Now())
				if err != nil {
					t.Errorf("confirm: %v", err)
					return
				}
				results[i] = applied
			}(i)
		}
		close(start)
		wg.Wait()

		wins := 0
		for _, applied := range results {
			if applied {
				wins++
			}
		}
		if wins != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", round, wins)
		}
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	l := New()
	const n = 20
	for i := 0; i < n; i++ {
		if _, err := l.Create(testIntent(fmt.Sprintf("ref-%d", i))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, _, err := l.TryConfirm(fmt.Sprintf("ref-%d", i), fmt.Sprintf("sig-%d", i), time.Now())
			if err != nil || !applied {
				t.Errorf("intent %d: applied=%v err=%v", i, applied, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(l.ListByStorefront("coffee-corner")); got != n {
		t.Fatalf("expected %d records, got %d", n, got)
	}
}
