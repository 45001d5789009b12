package validators

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// ParseQueryDecimal reads an optional decimal query parameter. An absent
// parameter returns ok=false with no error.
func ParseQueryDecimal(r *http.Request, key string) (decimal.Decimal, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return decimal.Zero, false, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a decimal number").WithDetails(map[string]any{"field": key})
	}
	return value, true, nil
}

// ParseQueryEnum reads a query parameter constrained to a fixed value set,
// falling back to defaultVal when absent.
func ParseQueryEnum(r *http.Request, key, defaultVal string, allowed ...string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return defaultVal, nil
	}
	for _, candidate := range allowed {
		if raw == candidate {
			return raw, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "allowed": allowed})
}
