package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/solshop/solshop-backend/api/responses"
	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/internal/storefronts"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
)

// GetPayment looks up a payment record by its correlation reference.
func GetPayment(led *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if led == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference required"))
			return
		}

		rec, ok := led.ByReference(reference)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found"))
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// ListStorefrontPayments returns a storefront's payment records, newest
// first. 404s for a storefront that does not exist rather than returning an
// empty list.
func ListStorefrontPayments(led *ledger.Ledger, sfs storefronts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if led == nil || sfs == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		slug := chi.URLParam(r, "slug")
		if _, err := sfs.GetStorefront(ctx, slug); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, led.ListByStorefront(slug))
	}
}
