package storefronts

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// Product is one purchasable item on a storefront.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency enums.Asset     `json:"currency"`
}

// Storefront is the record the payment engine consumes: a receiving wallet
// and a product list. Catalog management itself lives elsewhere.
type Storefront struct {
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"walletAddress"`
	IconURL       string    `json:"iconUrl,omitempty"`
	Products      []Product `json:"products"`
}

// Product returns the product with the given id.
func (s *Storefront) Product(id string) (*Product, bool) {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i], true
		}
	}
	return nil, false
}

// Service is the storefront collaborator contract.
type Service interface {
	GetStorefront(ctx context.Context, slug string) (*Storefront, error)
	GetStorefrontsByWallet(ctx context.Context, address string) ([]*Storefront, error)
	WatchedAccounts(ctx context.Context) ([]string, error)
}

// MemoryService holds storefronts in process, optionally seeded from a JSON
// file at startup.
type MemoryService struct {
	mu     sync.RWMutex
	bySlug map[string]*Storefront
}

func NewMemoryService() *MemoryService {
	return &MemoryService{bySlug: map[string]*Storefront{}}
}

// LoadSeedFile reads a JSON array of storefronts.
func (m *MemoryService) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read storefront seed file")
	}
	var seeds []Storefront
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse storefront seed file")
	}
	for i := range seeds {
		if err := m.Upsert(&seeds[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryService) Upsert(sf *Storefront) error {
	if sf == nil || strings.TrimSpace(sf.Slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "storefront slug required")
	}
	if strings.TrimSpace(sf.WalletAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "storefront wallet address required")
	}
	cp := *sf
	cp.Products = append([]Product{}, sf.Products...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySlug[cp.Slug] = &cp
	return nil
}

func (m *MemoryService) GetStorefront(ctx context.Context, slug string) (*Storefront, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sf, ok := m.bySlug[strings.TrimSpace(slug)]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storefront not found")
	}
	cp := *sf
	cp.Products = append([]Product{}, sf.Products...)
	return &cp, nil
}

func (m *MemoryService) GetStorefrontsByWallet(ctx context.Context, address string) ([]*Storefront, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Storefront{}
	for _, sf := range m.bySlug {
		if sf.WalletAddress == address {
			cp := *sf
			cp.Products = append([]Product{}, sf.Products...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryService) WatchedAccounts(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}
	out := []string{}
	for _, sf := range m.bySlug {
		if !seen[sf.WalletAddress] {
			seen[sf.WalletAddress] = true
			out = append(out, sf.WalletAddress)
		}
	}
	return out, nil
}
