package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/internal/poller"
	"github.com/solshop/solshop-backend/internal/storefronts"
	"github.com/solshop/solshop-backend/internal/txbuilder"
	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
	"github.com/solshop/solshop-backend/pkg/metrics"
)

const defaultIconURL = "https://solshop.dev/static/icon.png"

type transferBuilder interface {
	BuildTransfer(ctx context.Context, params txbuilder.BuildParams) (*txbuilder.BuiltTransfer, error)
}

type confirmationWatcher interface {
	Start(params poller.WatchParams) context.CancelFunc
}

// Metadata is the wallet-facing display payload for a checkout link.
type Metadata struct {
	Label   string `json:"label"`
	Icon    string `json:"icon"`
	Message string `json:"message,omitempty"`
}

// CreateParams identifies the storefront, product, settlement asset, and the
// paying wallet for one transaction build.
type CreateParams struct {
	Slug      string
	ProductID string
	Asset     string
	Account   string
	Memo      string
}

// CreateResult carries the unsigned transaction back to the wallet plus the
// bookkeeping the dashboard needs.
type CreateResult struct {
	Transaction string `json:"transaction"`
	Message     string `json:"message"`

	Reference string         `json:"-"`
	Record    *ledger.Record `json:"-"`
}

// Service builds checkout transactions and opens the matching payment intent.
type Service interface {
	RequestMetadata(ctx context.Context, slug, productID string) (*Metadata, error)
	CreateTransaction(ctx context.Context, params CreateParams) (*CreateResult, error)
}

type service struct {
	storefronts storefronts.Service
	builder     transferBuilder
	ledger      *ledger.Ledger
	watcher     confirmationWatcher
	logg        *logger.Logger
	metrics     *metrics.PaymentMetrics
}

func NewService(
	sfs storefronts.Service,
	builder transferBuilder,
	led *ledger.Ledger,
	watcher confirmationWatcher,
	logg *logger.Logger,
	pm *metrics.PaymentMetrics,
) (Service, error) {
	if sfs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service requires a storefront service")
	}
	if builder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service requires a transaction builder")
	}
	if led == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service requires a ledger")
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "checkout"})
	}
	return &service{
		storefronts: sfs,
		builder:     builder,
		ledger:      led,
		watcher:     watcher,
		logg:        logg,
		metrics:     pm,
	}, nil
}

func (s *service) RequestMetadata(ctx context.Context, slug, productID string) (*Metadata, error) {
	sf, product, err := s.resolve(ctx, slug, productID)
	if err != nil {
		return nil, err
	}

	icon := sf.IconURL
	if icon == "" {
		icon = defaultIconURL
	}
	return &Metadata{
		Label:   sf.Name,
		Icon:    icon,
		Message: fmt.Sprintf("%s (%s %s)", product.Name, product.Price.String(), strings.ToUpper(product.Currency.String())),
	}, nil
}

func (s *service) CreateTransaction(ctx context.Context, params CreateParams) (*CreateResult, error) {
	sf, product, err := s.resolve(ctx, params.Slug, params.ProductID)
	if err != nil {
		return nil, err
	}

	asset := product.Currency
	if raw := strings.TrimSpace(params.Asset); raw != "" {
		asset, err = enums.ParseAsset(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported settlement asset")
		}
	}

	payer, err := solana.PublicKeyFromBase58(strings.TrimSpace(params.Account))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payer account address")
	}
	merchant, err := solana.PublicKeyFromBase58(sf.WalletAddress)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storefront wallet misconfigured")
	}

	memo := strings.TrimSpace(params.Memo)
	if memo == "" {
		memo = fmt.Sprintf("%s: %s", sf.Name, product.Name)
	}

	reference := txbuilder.NewReference()
	built, err := s.builder.BuildTransfer(ctx, txbuilder.BuildParams{
		Asset:     asset,
		Payer:     payer,
		Merchant:  merchant,
		Amount:    product.Price,
		Reference: reference,
		Memo:      memo,
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.ledger.Create(ledger.Intent{
		StorefrontSlug:  sf.Slug,
		ProductID:       product.ID,
		Amount:          product.Price,
		Asset:           asset,
		Reference:       reference.String(),
		MerchantAddress: sf.WalletAddress,
		PayerAddress:    payer.String(),
	})
	if err != nil {
		return nil, err
	}

	if s.watcher != nil {
		s.watcher.Start(poller.WatchParams{
			Reference: reference.PublicKey(),
			Merchant:  merchant,
			Mint:      built.Mint,
			MinUnits:  built.MerchantUnits,
		})
	}
	s.metrics.IncBuild(asset.String())

	lctx := s.logg.WithReference(s.logg.WithStorefront(ctx, sf.Slug), reference.String())
	s.logg.Info(lctx, "checkout transaction built")

	return &CreateResult{
		Transaction: built.Base64,
		Message:     fmt.Sprintf("Pay %s %s to %s", product.Price.String(), strings.ToUpper(asset.String()), sf.Name),
		Reference:   reference.String(),
		Record:      rec,
	}, nil
}

func (s *service) resolve(ctx context.Context, slug, productID string) (*storefronts.Storefront, *storefronts.Product, error) {
	sf, err := s.storefronts.GetStorefront(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	product, ok := sf.Product(strings.TrimSpace(productID))
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"productId": productID})
	}
	return sf, product, nil
}
