package controllers

import (
	"context"
	"net/http"

	"github.com/solshop/solshop-backend/api/responses"
	"github.com/solshop/solshop-backend/pkg/config"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
)

type chainPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SolShop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the RPC endpoint answers.
func HealthReady(cfg *config.Config, chain chainPinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-SolShop-Env", cfg.App.Env)

		if chain == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chain client unavailable"))
			return
		}
		if err := chain.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
