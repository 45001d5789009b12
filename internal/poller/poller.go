package poller

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
	"github.com/solshop/solshop-backend/pkg/metrics"
	solanaclient "github.com/solshop/solshop-backend/pkg/solana"
)

// SignatureFinder is the chain surface the poller needs: signature discovery
// by account, pointed at a payment's reference key, and transaction
// inspection to check what a discovered signature actually paid.
type SignatureFinder interface {
	SignaturesFor(ctx context.Context, account solana.PublicKey, limit int) ([]solanaclient.SignatureInfo, error)
	PaymentTo(ctx context.Context, signature string, account solana.PublicKey) (*solanaclient.PaymentTotals, error)
}

// ConfirmSink is the ledger surface the poller proposes transitions to.
type ConfirmSink interface {
	TryConfirm(lookupKey, signature string, at time.Time) (bool, *ledger.Record, error)
	ByReference(reference string) (*ledger.Record, bool)
}

// WatchParams identifies one payment to watch. Discovery is by the
// single-use reference, but carrying the reference key proves nothing on its
// own: a discovered signature confirms only when it pays Merchant at least
// MinUnits of the expected asset.
type WatchParams struct {
	Reference solana.PublicKey
	Merchant  solana.PublicKey
	// Mint is nil for native transfers, the token mint otherwise.
	Mint *solana.PublicKey
	// MinUnits is the merchant's portion of the price in base units.
	MinUnits uint64
}

// Result reports the first confirmation observed for a watched reference.
// Applied is false when the webhook path won the race; the poller then
// simply stops without re-reporting.
type Result struct {
	Record    *ledger.Record
	Signature string
	Applied   bool
}

// Poller repeatedly asks the network whether a transaction referencing a
// correlation key has landed. One Run per open checkout; cancellation is
// cooperative via ctx.
type Poller struct {
	finder      SignatureFinder
	sink        ConfirmSink
	logg        *logger.Logger
	metrics     *metrics.PaymentMetrics
	interval    time.Duration
	maxAttempts int
}

func New(finder SignatureFinder, sink ConfirmSink, logg *logger.Logger, m *metrics.PaymentMetrics, interval time.Duration, maxAttempts int) (*Poller, error) {
	if finder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "signature finder required")
	}
	if sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger sink required")
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 100
	}
	return &Poller{
		finder:      finder,
		sink:        sink,
		logg:        logg,
		metrics:     m,
		interval:    interval,
		maxAttempts: maxAttempts,
	}, nil
}

// Run polls until the reference is observed, the record settles through the
// other path, ctx is cancelled, or the attempt budget runs out. Transient
// lookup errors are swallowed and retried on the next tick.
func (p *Poller) Run(ctx context.Context, params WatchParams) (Result, error) {
	if params.Reference.IsZero() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}

	reference := params.Reference.String()
	if p.logg != nil {
		ctx = p.logg.WithReference(ctx, reference)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}

		// The webhook path may have settled the record between ticks.
		if rec, ok := p.sink.ByReference(reference); ok && rec.Status != enums.PaymentStatusPending {
			return Result{Record: rec, Signature: rec.Signature}, nil
		}

		infos, err := p.finder.SignaturesFor(ctx, params.Reference, 10)
		if err != nil {
			if p.logg != nil {
				p.logg.Warn(p.logg.WithField(ctx, "attempt", attempt), "reference lookup failed, will retry")
			}
			continue
		}

		for _, info := range infos {
			if info.Failed || info.Signature == "" {
				continue
			}
			paid, err := p.paysMerchant(ctx, info.Signature, params)
			if err != nil {
				if p.logg != nil {
					p.logg.Warn(p.logg.WithSignature(ctx, info.Signature), "transaction fetch failed, will retry")
				}
				break
			}
			if !paid {
				if p.logg != nil {
					p.logg.Warn(p.logg.WithSignature(ctx, info.Signature), "referenced transaction does not pay the merchant, ignoring")
				}
				continue
			}
			at := info.BlockTime
			if at.IsZero() {
				at = time.Now().UTC()
			}
			applied, rec, err := p.sink.TryConfirm(reference, info.Signature, at)
			if err != nil {
				return Result{}, err
			}
			if applied {
				if p.metrics != nil {
					p.metrics.IncConfirmation("poller")
				}
				if p.logg != nil {
					p.logg.Info(p.logg.WithSignature(ctx, info.Signature), "payment confirmed by poller")
				}
			}
			return Result{Record: rec, Signature: info.Signature, Applied: applied}, nil
		}
	}

	return Result{}, pkgerrors.New(pkgerrors.CodeDependency, "confirmation polling exhausted").WithDetails(map[string]any{"reference": reference})
}

// paysMerchant verifies that a discovered signature moved the expected value
// to the merchant. Without this check a third party could settle an intent
// by landing a zero-value transaction that merely mentions the reference key.
func (p *Poller) paysMerchant(ctx context.Context, signature string, params WatchParams) (bool, error) {
	if params.MinUnits == 0 || params.Merchant.IsZero() {
		return true, nil
	}
	totals, err := p.finder.PaymentTo(ctx, signature, params.Merchant)
	if err != nil {
		return false, err
	}
	if totals == nil {
		return false, nil
	}
	if params.Mint != nil {
		return totals.TokenUnits[*params.Mint] >= params.MinUnits, nil
	}
	return totals.Lamports >= params.MinUnits, nil
}

// Start runs the watch in the background, detached from the request that
// spawned it. The returned cancel func ties the loop to its owner's
// lifetime.
func (p *Poller) Start(params WatchParams) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if _, err := p.Run(ctx, params); err != nil && ctx.Err() == nil {
			if p.logg != nil {
				p.logg.Warn(p.logg.WithReference(context.Background(), params.Reference.String()), "confirmation watch ended without settlement")
			}
		}
	}()
	return cancel
}
