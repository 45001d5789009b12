package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solshop/solshop-backend/internal/fees"
)

func TestFeeScheduleWithoutAmount(t *testing.T) {
	handler := FeeSchedule(fees.NewCalculator("treasury", 75), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			PlatformFeeBps     int64           `json:"platformFeeBps"`
			PlatformFeePercent string          `json:"platformFeePercent"`
			Breakdown          *fees.Breakdown `json:"breakdown"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.PlatformFeeBps != 75 || envelope.Data.PlatformFeePercent != "0.75" {
		t.Fatalf("unexpected schedule %+v", envelope.Data)
	}
	if envelope.Data.Breakdown != nil {
		t.Fatalf("no breakdown without an amount")
	}
}

func TestFeeScheduleWithAmount(t *testing.T) {
	handler := FeeSchedule(fees.NewCalculator("treasury", 75), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees?amount=100&asset=usdc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			Breakdown *fees.Breakdown `json:"breakdown"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := envelope.Data.Breakdown
	if b == nil {
		t.Fatalf("expected a worked breakdown")
	}
	if b.Fee.String() != "0.75" || b.Merchant.String() != "99.25" {
		t.Fatalf("split wrong: fee=%s merchant=%s", b.Fee, b.Merchant)
	}
}

func TestFeeScheduleRejectsBadAmount(t *testing.T) {
	handler := FeeSchedule(fees.NewCalculator("", 0), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees?amount=abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad amount must 400, got %d", rec.Code)
	}
}
