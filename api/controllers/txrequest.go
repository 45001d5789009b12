package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solshop/solshop-backend/api/responses"
	"github.com/solshop/solshop-backend/api/validators"
	"github.com/solshop/solshop-backend/internal/checkout"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
)

type createTransactionRequest struct {
	Account string `json:"account" validate:"required"`
	Memo    string `json:"memo,omitempty"`
}

// TransactionRequestMetadata serves the wallet's initial GET: display
// metadata only, no side effects. The payload is raw per the wallet
// protocol, not wrapped in the API envelope.
func TransactionRequestMetadata(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		meta, err := svc.RequestMetadata(ctx, chi.URLParam(r, "slug"), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteRaw(w, http.StatusOK, meta)
	}
}

// CreateTransactionRequest serves the wallet's POST: builds the unsigned
// transaction, opens the payment intent, and starts the confirmation watch.
func CreateTransactionRequest(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body createTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateTransaction(ctx, checkout.CreateParams{
			Slug:      chi.URLParam(r, "slug"),
			ProductID: chi.URLParam(r, "productId"),
			Asset:     r.URL.Query().Get("asset"),
			Account:   body.Account,
			Memo:      body.Memo,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteRaw(w, http.StatusOK, result)
	}
}
