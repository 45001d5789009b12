package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solshop/solshop-backend/pkg/enums"
)

// UnknownProductID marks records materialized from chain events that could
// not be matched to a prior intent. Direct payments are never dropped.
const UnknownProductID = "unknown"

// Record is the authoritative payment-intent row. Mutation happens only
// inside the Ledger; both confirmation paths merely propose transitions.
type Record struct {
	ID              uuid.UUID           `json:"id"`
	StorefrontSlug  string              `json:"storefrontSlug"`
	ProductID       string              `json:"productId"`
	Amount          decimal.Decimal     `json:"amount"`
	Asset           enums.Asset         `json:"asset"`
	Reference       string              `json:"reference"`
	Status          enums.PaymentStatus `json:"status"`
	MerchantAddress string              `json:"merchantAddress"`
	PayerAddress    string              `json:"payerAddress"`
	Signature       string              `json:"signature,omitempty"`
	FailReason      string              `json:"failReason,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	ConfirmedAt     *time.Time          `json:"confirmedAt,omitempty"`
}

// Intent carries the fields needed to open a pending record at build time.
type Intent struct {
	ID              uuid.UUID
	StorefrontSlug  string
	ProductID       string
	Amount          decimal.Decimal
	Asset           enums.Asset
	Reference       string
	MerchantAddress string
	PayerAddress    string
}

// ExternalPayment describes a confirmed transfer observed on chain with no
// matching prior intent.
type ExternalPayment struct {
	StorefrontSlug  string
	Amount          decimal.Decimal
	Asset           enums.Asset
	MerchantAddress string
	PayerAddress    string
	Signature       string
	ObservedAt      time.Time
}

func (r *Record) snapshot() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ConfirmedAt != nil {
		at := *r.ConfirmedAt
		cp.ConfirmedAt = &at
	}
	return &cp
}
