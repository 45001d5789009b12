package helius

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/internal/notifications"
	"github.com/solshop/solshop-backend/internal/storefronts"
	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
	"github.com/solshop/solshop-backend/pkg/metrics"
)

// Event is one enhanced-transaction element from a Helius webhook batch.
type Event struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
}

// NativeTransfer is a lamport movement between two system accounts.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          uint64 `json:"amount"`
}

// TokenTransfer is an SPL token movement, amount already in UI units.
type TokenTransfer struct {
	FromUserAccount string          `json:"fromUserAccount"`
	ToUserAccount   string          `json:"toUserAccount"`
	Mint            string          `json:"mint"`
	TokenAmount     decimal.Decimal `json:"tokenAmount"`
}

// BatchResult summarizes one processed webhook delivery.
type BatchResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// Service correlates pushed chain events to payment intents.
type Service interface {
	ProcessBatch(ctx context.Context, events []Event) (*BatchResult, error)
}

type service struct {
	ledger        *ledger.Ledger
	storefronts   storefronts.Service
	notifications notifications.Service
	usdcMint      string
	logg          *logger.Logger
	metrics       *metrics.PaymentMetrics
}

func NewService(
	led *ledger.Ledger,
	sfs storefronts.Service,
	nots notifications.Service,
	usdcMint string,
	logg *logger.Logger,
	pm *metrics.PaymentMetrics,
) (Service, error) {
	if led == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "helius service requires a ledger")
	}
	if sfs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "helius service requires a storefront service")
	}
	if nots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "helius service requires a notification service")
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "helius"})
	}
	return &service{
		ledger:        led,
		storefronts:   sfs,
		notifications: nots,
		usdcMint:      strings.TrimSpace(usdcMint),
		logg:          logg,
		metrics:       pm,
	}, nil
}

// recognized is the single payment extracted from one event: the first
// transfer whose destination is a watched merchant account.
type recognized struct {
	merchant string
	payer    string
	amount   decimal.Decimal
	asset    enums.Asset
}

// ProcessBatch walks a delivered batch element by element. A malformed or
// unmatched element is skipped and counted, never fatal to the batch; element
// side-effect errors are aggregated and reported alongside the result.
func (s *service) ProcessBatch(ctx context.Context, events []Event) (*BatchResult, error) {
	result := &BatchResult{}
	var errs error

	for _, ev := range events {
		handled, err := s.processEvent(ctx, ev)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if handled {
			result.Processed++
		} else {
			result.Skipped++
			s.metrics.IncSkipped()
		}
	}

	s.metrics.IncBatch("ok")
	return result, errs
}

func (s *service) processEvent(ctx context.Context, ev Event) (bool, error) {
	signature := strings.TrimSpace(ev.Signature)
	if signature == "" {
		return false, nil
	}

	// Retried deliveries and signatures the poller already applied are
	// settled: no new record, no new notification.
	if s.ledger.SeenSignature(signature) {
		s.logg.Debug(s.logg.WithSignature(ctx, signature), "signature already settled, ignoring redelivery")
		return true, nil
	}

	pay, ok, err := s.recognize(ctx, ev)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	observedAt := time.Now().UTC()
	if ev.Timestamp > 0 {
		observedAt = time.Unix(ev.Timestamp, 0).UTC()
	}

	if intent := s.pickIntent(pay); intent != nil {
		applied, rec, err := s.ledger.TryConfirm(intent.Reference, signature, observedAt)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm correlated intent")
		}
		if !applied {
			// Lost the race against the poller on this very signature.
			return true, nil
		}
		s.metrics.IncConfirmation("webhook")
		lctx := s.logg.WithSignature(s.logg.WithStorefront(ctx, rec.StorefrontSlug), signature)
		s.logg.Info(lctx, "payment confirmed via webhook")
		return true, s.notifyReceived(ctx, rec)
	}

	// No pending intent for this merchant account: materialize a confirmed
	// record so direct payments are never silently dropped.
	slug, err := s.slugForWallet(ctx, pay.merchant)
	if err != nil {
		return false, err
	}
	created, rec := s.ledger.RecordExternal(ledger.ExternalPayment{
		StorefrontSlug:  slug,
		Amount:          pay.amount,
		Asset:           pay.asset,
		MerchantAddress: pay.merchant,
		PayerAddress:    pay.payer,
		Signature:       signature,
		ObservedAt:      observedAt,
	})
	if !created {
		return true, nil
	}
	s.metrics.IncConfirmation("webhook")
	lctx := s.logg.WithSignature(s.logg.WithStorefront(ctx, slug), signature)
	s.logg.Info(lctx, "unmatched payment recorded via webhook")
	return true, s.notifyUnknown(ctx, rec)
}

// recognize scans native transfers before token transfers and returns the
// first whose destination is a watched merchant account.
func (s *service) recognize(ctx context.Context, ev Event) (*recognized, bool, error) {
	accounts, err := s.storefronts.WatchedAccounts(ctx)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list watched accounts")
	}
	watched := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		watched[a] = true
	}

	for _, nt := range ev.NativeTransfers {
		if nt.Amount == 0 || !watched[nt.ToUserAccount] {
			continue
		}
		return &recognized{
			merchant: nt.ToUserAccount,
			payer:    nt.FromUserAccount,
			amount:   decimal.NewFromUint64(nt.Amount).Shift(-enums.AssetSOL.Decimals()),
			asset:    enums.AssetSOL,
		}, true, nil
	}
	for _, tt := range ev.TokenTransfers {
		if tt.Mint != s.usdcMint || !tt.TokenAmount.IsPositive() || !watched[tt.ToUserAccount] {
			continue
		}
		return &recognized{
			merchant: tt.ToUserAccount,
			payer:    tt.FromUserAccount,
			amount:   tt.TokenAmount,
			asset:    enums.AssetUSDC,
		}, true, nil
	}
	return nil, false, nil
}

// pickIntent chooses the candidate pending intent for a recognized transfer:
// an exact amount match first, otherwise the oldest pending intent for the
// merchant account, both restricted to the transfer's asset. A SOL transfer
// never settles a USDC intent; a mismatched asset falls through to the
// unmatched-payment path instead.
func (s *service) pickIntent(pay *recognized) *ledger.Record {
	var oldest *ledger.Record
	for _, c := range s.ledger.PendingByAccount(pay.merchant) {
		if c.Asset != pay.asset {
			continue
		}
		if c.Amount.Equal(pay.amount) {
			return c
		}
		if oldest == nil {
			oldest = c
		}
	}
	return oldest
}

func (s *service) notifyReceived(ctx context.Context, rec *ledger.Record) error {
	_, err := s.notifications.Add(ctx, rec.StorefrontSlug, notifications.Notification{
		Type:      enums.NotificationTypePaymentReceived,
		Title:     "Payment received",
		Message:   fmt.Sprintf("Received %s %s for product %s", rec.Amount.String(), strings.ToUpper(rec.Asset.String()), rec.ProductID),
		Signature: rec.Signature,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append payment notification")
	}
	return nil
}

func (s *service) notifyUnknown(ctx context.Context, rec *ledger.Record) error {
	_, err := s.notifications.Add(ctx, rec.StorefrontSlug, notifications.Notification{
		Type:      enums.NotificationTypePaymentUnknown,
		Title:     "Unmatched payment",
		Message:   fmt.Sprintf("Received %s %s with no matching checkout", rec.Amount.String(), strings.ToUpper(rec.Asset.String())),
		Signature: rec.Signature,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append unmatched-payment notification")
	}
	return nil
}

func (s *service) slugForWallet(ctx context.Context, address string) (string, error) {
	sfs, err := s.storefronts.GetStorefrontsByWallet(ctx, address)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve storefront for wallet")
	}
	if len(sfs) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no storefront for watched wallet")
	}
	return sfs[0].Slug, nil
}
