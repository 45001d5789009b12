package ledger

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// Ledger is the in-process payment-intent store and the sole synchronization
// point between the poller and webhook confirmation paths. Transitions use
// compare-and-swap semantics: only a pending record can confirm, so the
// first writer wins and everyone else no-ops.
type Ledger struct {
	locks *keyedLocks

	mu          sync.RWMutex
	records     map[uuid.UUID]*Record
	byReference map[string]uuid.UUID
	bySignature map[string]uuid.UUID
	// byAccount indexes pending intents by the merchant's receiving account
	// so the webhook path can narrow an event without scanning the ledger.
	byAccount map[string][]uuid.UUID
}

func New() *Ledger {
	return &Ledger{
		locks:       newKeyedLocks(),
		records:     map[uuid.UUID]*Record{},
		byReference: map[string]uuid.UUID{},
		bySignature: map[string]uuid.UUID{},
		byAccount:   map[string][]uuid.UUID{},
	}
}

// Create inserts a new pending record. Reusing an id or a reference is a
// programmer error and fails with a conflict.
func (l *Ledger) Create(intent Intent) (*Record, error) {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	reference := strings.TrimSpace(intent.Reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	if intent.MerchantAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant address required")
	}

	release := l.locks.acquire(reference)
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[intent.ID]; exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "duplicate payment intent").WithDetails(map[string]any{"id": intent.ID.String()})
	}
	if _, exists := l.byReference[reference]; exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reference already used").WithDetails(map[string]any{"reference": reference})
	}

	rec := &Record{
		ID:              intent.ID,
		StorefrontSlug:  intent.StorefrontSlug,
		ProductID:       intent.ProductID,
		Amount:          intent.Amount,
		Asset:           intent.Asset,
		Reference:       reference,
		Status:          enums.PaymentStatusPending,
		MerchantAddress: intent.MerchantAddress,
		PayerAddress:    intent.PayerAddress,
		CreatedAt:       time.Now().UTC(),
	}
	l.records[rec.ID] = rec
	l.byReference[reference] = rec.ID
	l.byAccount[rec.MerchantAddress] = append(l.byAccount[rec.MerchantAddress], rec.ID)

	return rec.snapshot(), nil
}

// TryConfirm proposes the pending→confirmed transition for the record found
// by reference, or by an already-recorded signature. Re-confirming an
// already-confirmed record returns applied=false with the existing record;
// that no-op is what makes the two racing confirmation paths safe.
func (l *Ledger) TryConfirm(lookupKey, signature string, at time.Time) (bool, *Record, error) {
	lookupKey = strings.TrimSpace(lookupKey)
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false, nil, pkgerrors.New(pkgerrors.CodeValidation, "signature required")
	}

	reference, ok := l.resolveReference(lookupKey, signature)
	if !ok {
		return false, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment intent for key")
	}

	release := l.locks.acquire(reference)
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.byReference[reference]
	if !ok {
		return false, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment intent for key")
	}
	rec := l.records[id]

	// A signature settles at most one record, whichever intent it was
	// attributed to first.
	if prior, seen := l.bySignature[signature]; seen && prior != id {
		return false, l.records[prior].snapshot(), nil
	}

	if rec.Status != enums.PaymentStatusPending {
		return false, rec.snapshot(), nil
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	confirmedAt := at.UTC()
	rec.Status = enums.PaymentStatusConfirmed
	rec.Signature = signature
	rec.ConfirmedAt = &confirmedAt
	l.bySignature[signature] = rec.ID
	l.dropPending(rec)

	return true, rec.snapshot(), nil
}

// MarkFailed transitions pending→failed on an explicit build or broadcast
// error. Confirmed and already-failed records are left untouched.
func (l *Ledger) MarkFailed(id uuid.UUID, reason string) (*Record, error) {
	l.mu.RLock()
	rec, ok := l.records[id]
	l.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}

	release := l.locks.acquire(rec.Reference)
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Status != enums.PaymentStatusPending {
		return rec.snapshot(), nil
	}
	rec.Status = enums.PaymentStatusFailed
	rec.FailReason = reason
	l.dropPending(rec)
	return rec.snapshot(), nil
}

// RecordExternal materializes a confirmed record for a transfer that matched
// no pending intent, idempotent on signature.
func (l *Ledger) RecordExternal(p ExternalPayment) (bool, *Record) {
	signature := strings.TrimSpace(p.Signature)
	if signature == "" {
		return false, nil
	}

	release := l.locks.acquire(signature)
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()

	if id, seen := l.bySignature[signature]; seen {
		return false, l.records[id].snapshot()
	}

	at := p.ObservedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	confirmedAt := at.UTC()
	rec := &Record{
		ID:              uuid.New(),
		StorefrontSlug:  p.StorefrontSlug,
		ProductID:       UnknownProductID,
		Amount:          p.Amount,
		Asset:           p.Asset,
		Status:          enums.PaymentStatusConfirmed,
		MerchantAddress: p.MerchantAddress,
		PayerAddress:    p.PayerAddress,
		Signature:       signature,
		CreatedAt:       confirmedAt,
		ConfirmedAt:     &confirmedAt,
	}
	l.records[rec.ID] = rec
	l.bySignature[signature] = rec.ID
	return true, rec.snapshot()
}

// PendingByAccount returns pending intents for a merchant receiving account
// in insertion order.
func (l *Ledger) PendingByAccount(address string) []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byAccount[address]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec := l.records[id]
		if rec != nil && rec.Status == enums.PaymentStatusPending {
			out = append(out, rec.snapshot())
		}
	}
	return out
}

// ByReference returns the record carrying the given correlation reference.
func (l *Ledger) ByReference(reference string) (*Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.byReference[strings.TrimSpace(reference)]
	if !ok {
		return nil, false
	}
	return l.records[id].snapshot(), true
}

// ListByStorefront returns all records for a storefront, newest first.
func (l *Ledger) ListByStorefront(slug string) []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []*Record{}
	for _, rec := range l.records {
		if rec.StorefrontSlug == slug {
			out = append(out, rec.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SeenSignature reports whether a chain signature has already been applied.
func (l *Ledger) SeenSignature(signature string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, seen := l.bySignature[strings.TrimSpace(signature)]
	return seen
}

func (l *Ledger) resolveReference(lookupKey, signature string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if lookupKey != "" {
		if _, ok := l.byReference[lookupKey]; ok {
			return lookupKey, true
		}
	}
	if id, ok := l.bySignature[signature]; ok {
		return l.records[id].Reference, true
	}
	return "", false
}

// dropPending removes the record from the watched-account index. Caller
// holds the write lock.
func (l *Ledger) dropPending(rec *Record) {
	ids := l.byAccount[rec.MerchantAddress]
	for i, id := range ids {
		if id == rec.ID {
			l.byAccount[rec.MerchantAddress] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
