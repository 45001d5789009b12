package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/solshop/solshop-backend/api/responses"
	heliuswebhook "github.com/solshop/solshop-backend/internal/webhooks/helius"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
	"github.com/solshop/solshop-backend/pkg/logger"
	"github.com/solshop/solshop-backend/pkg/metrics"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Helius-Signature"

type heliusBatchResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
}

// HeliusWebhook ingests pushed transaction batches. An empty secret disables
// verification, which is acceptable only in development.
func HeliusWebhook(svc heliuswebhook.Service, secret string, pm *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		// Authentication happens before any parsing: a bad signature rejects
		// the whole batch untouched.
		if secret != "" && !validateHeliusSignature(payload, secret, r.Header.Get(SignatureHeader)) {
			pm.IncBatch("unauthorized")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var events []heliuswebhook.Event
		if err := json.Unmarshal(payload, &events); err != nil {
			pm.IncBatch("malformed")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event batch"))
			return
		}

		result, err := svc.ProcessBatch(ctx, events)
		if err != nil && logg != nil {
			// Element-level failures are counted, not fatal.
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "webhook batch processed with element errors")
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("helius batch processed=%d skipped=%d", result.Processed, result.Skipped))
		}
		responses.WriteRaw(w, http.StatusOK, heliusBatchResponse{Success: true, Processed: result.Processed})
	}
}

func validateHeliusSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
