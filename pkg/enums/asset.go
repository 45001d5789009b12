package enums

import "fmt"

// Asset identifies the settlement asset for a payment. SOL moves through
// plain system transfers; USDC is an SPL token and needs holding accounts.
type Asset string

const (
	AssetSOL  Asset = "sol"
	AssetUSDC Asset = "usdc"
)

var validAssets = []Asset{
	AssetSOL,
	AssetUSDC,
}

// String implements fmt.Stringer.
func (a Asset) String() string {
	return string(a)
}

// IsValid reports whether the asset is recognized.
func (a Asset) IsValid() bool {
	for _, candidate := range validAssets {
		if candidate == a {
			return true
		}
	}
	return false
}

// Native reports whether the asset is the network's base currency.
func (a Asset) Native() bool {
	return a == AssetSOL
}

// Decimals returns the asset's maximum supported decimal precision.
func (a Asset) Decimals() int32 {
	if a == AssetSOL {
		return 9
	}
	return 6
}

// ParseAsset converts a raw string into an Asset.
func ParseAsset(value string) (Asset, error) {
	for _, candidate := range validAssets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset %q", value)
}
