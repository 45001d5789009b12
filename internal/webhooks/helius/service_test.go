package helius

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/internal/notifications"
	"github.com/solshop/solshop-backend/internal/storefronts"
	"github.com/solshop/solshop-backend/pkg/enums"
)

const (
	testWallet   = "MerchantWallet11111111111111111111111111111"
	testMint     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testRef      = "Ref1111111111111111111111111111111111111111"
	testOtherRef = "Ref2222222222222222222222222222222222222222"
)

type fixture struct {
	ledger *ledger.Ledger
	sfs    *storefronts.MemoryService
	nots   notifications.Service
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sfs := storefronts.NewMemoryService()
	if err := sfs.Upsert(&storefronts.Storefront{
		Slug:          "coffee-corner",
		Name:          "Coffee Corner",
		WalletAddress: testWallet,
	}); err != nil {
		t.Fatalf("upsert storefront: %v", err)
	}

	led := ledger.New()
	nots := notifications.NewService()
	svc, err := NewService(led, sfs, nots, testMint, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{ledger: led, sfs: sfs, nots: nots, svc: svc}
}

func (f *fixture) addIntent(t *testing.T, reference, amount string, asset enums.Asset) *ledger.Record {
	t.Helper()
	rec, err := f.ledger.Create(ledger.Intent{
		StorefrontSlug:  "coffee-corner",
		ProductID:       "prod-1",
		Amount:          decimal.RequireFromString(amount),
		Asset:           asset,
		Reference:       reference,
		MerchantAddress: testWallet,
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	return rec
}

func nativeEvent(signature string, lamports uint64) Event {
	return Event{
		Signature: signature,
		Timestamp: 1756450000,
		NativeTransfers: []NativeTransfer{
			{FromUserAccount: "payer", ToUserAccount: testWallet, Amount: lamports},
		},
	}
}

func TestProcessBatchConfirmsExactAmountMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addIntent(t, testOtherRef, "1", enums.AssetSOL)
	want := f.addIntent(t, testRef, "5", enums.AssetSOL)

	result, err := f.svc.ProcessBatch(ctx, []Event{nativeEvent("sig-1", 5_000_000_000)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	rec, ok := f.ledger.ByReference(want.Reference)
	if !ok || rec.Status != enums.PaymentStatusConfirmed || rec.Signature != "sig-1" {
		t.Fatalf("exact-amount intent must confirm, got %+v", rec)
	}
	if other, _ := f.ledger.ByReference(testOtherRef); other.Status != enums.PaymentStatusPending {
		t.Fatalf("unrelated intent must stay pending")
	}

	items, _ := f.nots.List(ctx, "coffee-corner", false)
	if len(items) != 1 || items[0].Type != enums.NotificationTypePaymentReceived {
		t.Fatalf("expected one payment-received notification, got %+v", items)
	}
}

func TestProcessBatchFallsBackToOldestPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldest := f.addIntent(t, testRef, "3", enums.AssetSOL)
	f.addIntent(t, testOtherRef, "4", enums.AssetSOL)

	// 5 SOL matches no intent exactly.
	if _, err := f.svc.ProcessBatch(ctx, []Event{nativeEvent("sig-1", 5_000_000_000)}); err != nil {
		t.Fatalf("process: %v", err)
	}

	rec, _ := f.ledger.ByReference(oldest.Reference)
	if rec.Status != enums.PaymentStatusConfirmed {
		t.Fatalf("oldest pending intent must win the fallback, got %+v", rec)
	}
}

func TestProcessBatchFallbackRespectsAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The only pending intent wants USDC; a SOL transfer arrives instead.
	f.addIntent(t, testRef, "5", enums.AssetUSDC)

	if _, err := f.svc.ProcessBatch(ctx, []Event{nativeEvent("sig-sol", 5_000_000_000)}); err != nil {
		t.Fatalf("process: %v", err)
	}

	rec, _ := f.ledger.ByReference(testRef)
	if rec.Status != enums.PaymentStatusPending {
		t.Fatalf("a SOL transfer must never settle a USDC intent, got %+v", rec)
	}

	records := f.ledger.ListByStorefront("coffee-corner")
	if len(records) != 2 {
		t.Fatalf("the mismatched transfer must land as an unmatched payment, got %d records", len(records))
	}
	var external *ledger.Record
	for _, r := range records {
		if r.ProductID == ledger.UnknownProductID {
			external = r
		}
	}
	if external == nil || external.Status != enums.PaymentStatusConfirmed || external.Asset != enums.AssetSOL {
		t.Fatalf("unexpected unmatched record %+v", external)
	}

	items, _ := f.nots.List(ctx, "coffee-corner", false)
	if len(items) != 1 || items[0].Type != enums.NotificationTypePaymentUnknown {
		t.Fatalf("expected one unmatched-payment notification, got %+v", items)
	}
}

func TestProcessBatchConfirmsTokenTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addIntent(t, testRef, "12.5", enums.AssetUSDC)

	event := Event{
		Signature: "sig-usdc",
		TokenTransfers: []TokenTransfer{
			{FromUserAccount: "payer", ToUserAccount: testWallet, Mint: "SomeOtherMint", TokenAmount: decimal.RequireFromString("12.5")},
			{FromUserAccount: "payer", ToUserAccount: testWallet, Mint: testMint, TokenAmount: decimal.RequireFromString("12.5")},
		},
	}
	if _, err := f.svc.ProcessBatch(ctx, []Event{event}); err != nil {
		t.Fatalf("process: %v", err)
	}

	rec, _ := f.ledger.ByReference(testRef)
	if rec.Status != enums.PaymentStatusConfirmed || rec.Signature != "sig-usdc" {
		t.Fatalf("usdc intent must confirm from the recognized mint, got %+v", rec)
	}
}

func TestProcessBatchIdempotentOnRedelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addIntent(t, testRef, "5", enums.AssetSOL)
	batch := []Event{nativeEvent("sig-1", 5_000_000_000)}

	if _, err := f.svc.ProcessBatch(ctx, batch); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := f.svc.ProcessBatch(ctx, batch)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("redelivered event is handled, not skipped: %+v", result)
	}

	items, _ := f.nots.List(ctx, "coffee-corner", false)
	if len(items) != 1 {
		t.Fatalf("redelivery must not duplicate notifications, got %d", len(items))
	}
	if got := len(f.ledger.ListByStorefront("coffee-corner")); got != 1 {
		t.Fatalf("redelivery must not duplicate records, got %d", got)
	}
}

func TestProcessBatchMaterializesUnknownPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No pending intent at all: a direct payment still lands in the ledger.
	if _, err := f.svc.ProcessBatch(ctx, []Event{nativeEvent("sig-direct", 2_000_000_000)}); err != nil {
		t.Fatalf("process: %v", err)
	}

	records := f.ledger.ListByStorefront("coffee-corner")
	if len(records) != 1 {
		t.Fatalf("expected one materialized record, got %d", len(records))
	}
	rec := records[0]
	if rec.ProductID != ledger.UnknownProductID || rec.Status != enums.PaymentStatusConfirmed {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.Amount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("lamports must convert to whole SOL, got %s", rec.Amount)
	}

	items, _ := f.nots.List(ctx, "coffee-corner", false)
	if len(items) != 1 || items[0].Type != enums.NotificationTypePaymentUnknown {
		t.Fatalf("expected one unmatched-payment notification, got %+v", items)
	}
}

func TestProcessBatchSkipsUnmatchedElements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addIntent(t, testRef, "5", enums.AssetSOL)

	batch := []Event{
		{}, // no signature
		{Signature: "sig-elsewhere", NativeTransfers: []NativeTransfer{{FromUserAccount: "a", ToUserAccount: "not-watched", Amount: 1}}},
		nativeEvent("sig-1", 5_000_000_000),
	}
	result, err := f.svc.ProcessBatch(ctx, batch)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 2 {
		t.Fatalf("bad elements are counted and skipped, got %+v", result)
	}

	rec, _ := f.ledger.ByReference(testRef)
	if rec.Status != enums.PaymentStatusConfirmed {
		t.Fatalf("valid element must still confirm")
	}
}

func TestProcessBatchDoesNotReconfirmPollerWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addIntent(t, testRef, "5", enums.AssetSOL)
	if applied, _, err := f.ledger.TryConfirm(testRef, "sig-1", time.Time{}); err != nil || !applied {
		t.Fatalf("poller confirm: applied=%v err=%v", applied, err)
	}

	// The webhook then delivers the same underlying signature.
	result, err := f.svc.ProcessBatch(ctx, []Event{nativeEvent("sig-1", 5_000_000_000)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("settled signature is handled without side effects, got %+v", result)
	}

	rec, _ := f.ledger.ByReference(testRef)
	if rec.Signature != "sig-1" || rec.Status != enums.PaymentStatusConfirmed {
		t.Fatalf("record must keep the poller's result, got %+v", rec)
	}
	if items, _ := f.nots.List(ctx, "coffee-corner", false); len(items) != 0 {
		t.Fatalf("no notification for a poller-settled signature, got %+v", items)
	}
}
