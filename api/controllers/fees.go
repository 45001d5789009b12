package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/solshop/solshop-backend/api/responses"
	"github.com/solshop/solshop-backend/api/validators"
	"github.com/solshop/solshop-backend/internal/fees"
	"github.com/solshop/solshop-backend/pkg/enums"
	"github.com/solshop/solshop-backend/pkg/logger"
)

type feeScheduleResponse struct {
	PlatformFeeBps     int64           `json:"platformFeeBps"`
	PlatformFeePercent decimal.Decimal `json:"platformFeePercent"`
	Breakdown          *fees.Breakdown `json:"breakdown,omitempty"`
}

// FeeSchedule returns the platform fee rate, optionally with a worked split
// for an `amount` query parameter.
func FeeSchedule(calc fees.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payload := feeScheduleResponse{
			PlatformFeeBps:     calc.FeeBps(),
			PlatformFeePercent: decimal.NewFromInt(calc.FeeBps()).Div(decimal.NewFromInt(100)),
		}

		amount, present, err := validators.ParseQueryDecimal(r, "amount")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if present {
			raw, err := validators.ParseQueryEnum(r, "asset", enums.AssetSOL.String(), enums.AssetSOL.String(), enums.AssetUSDC.String())
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			asset, _ := enums.ParseAsset(raw)
			breakdown := calc.Calculate(amount, asset.Decimals())
			payload.Breakdown = &breakdown
		}

		responses.WriteSuccess(w, payload)
	}
}
