package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loadhaul/platform/services/payments-service/internal/adapters/memory"
	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, opts HandlerOptions) http.Handler {
	t.Helper()
	stores := memory.NewStores()
	svc := application.NewService(application.Dependencies{
		Loads:           stores.Loads(),
		Bids:            stores.Bids(),
		Payments:        stores.Payments(),
		Payouts:         stores.Payouts(),
		Documents:       stores.Documents(),
		CarrierAccounts: stores.CarrierAccounts(),
		Idempotency:     stores.Idempotency(),
		Outbox:          stores.Outbox(),
		Processor:       memory.NewProcessor(),
		DomainEvents:    memory.NewPublisher(),
		Analytics:       memory.NewPublisher(),
	})
	if opts.JWTSecret == nil {
		opts.JWTSecret = []byte(testSecret)
	}
	return NewRouter(NewHandler(svc, opts))
}

func signToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("envelope status: %s", envelope.Status)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope contracts.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error: %v (%s)", err, rec.Body.String())
	}
	return envelope.Error.Code
}

func TestAuthRejectsMissingAndForgedTokens(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{})

	rec := doJSON(t, router, http.MethodGet, "/payments/v1/loads/abc", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rec.Code)
	}

	forged := signToken(t, "wrong-secret", "ship_1", "shipper")
	rec = doJSON(t, router, http.MethodGet, "/payments/v1/loads/abc", forged, nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: %d", rec.Code)
	}
}

func TestHealthEndpointsNeedNoAuth(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rec.Code)
		}
	}
}

func TestEscrowBookingFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{})
	shipper := signToken(t, testSecret, "ship_1", "shipper")
	carrier := signToken(t, testSecret, "car_1", "carrier")

	rec := doJSON(t, router, http.MethodPost, "/payments/v1/loads", shipper, contracts.CreateLoadRequest{
		OriginCity:      "Dallas",
		DestinationCity: "Atlanta",
		EquipmentType:   "dry_van",
		PostedRate:      1000.00,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create load: %d %s", rec.Code, rec.Body.String())
	}
	var load struct {
		LoadID string `json:"load_id"`
	}
	decodeData(t, rec, &load)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/payments/v1/loads/%s/bids", load.LoadID), carrier, contracts.PlaceBidRequest{Amount: 950.00}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("place bid: %d %s", rec.Code, rec.Body.String())
	}
	var bid struct {
		BidID     string `json:"bid_id"`
		CarrierID string `json:"carrier_id"`
	}
	decodeData(t, rec, &bid)

	rec = doJSON(t, router, http.MethodPost, "/payments/v1/escrow/holds", shipper, contracts.CreateHoldRequest{
		LoadID:    load.LoadID,
		BidID:     bid.BidID,
		CarrierID: bid.CarrierID,
		Amount:    950.00,
	}, map[string]string{"Idempotency-Key": "hold-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create hold: %d %s", rec.Code, rec.Body.String())
	}
	var hold contracts.CreateHoldResponse
	decodeData(t, rec, &hold)
	if hold.HoldRef == "" || hold.ClientSecret == "" || hold.AmountCents != 95000 {
		t.Fatalf("hold response: %+v", hold)
	}

	rec = doJSON(t, router, http.MethodPost, "/payments/v1/escrow/holds/confirm", shipper, contracts.ConfirmHoldRequest{
		HoldRef: hold.HoldRef,
		LoadID:  load.LoadID,
		BidID:   bid.BidID,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm hold: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/payments/v1/loads/%s/payment", load.LoadID), carrier, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment: %d %s", rec.Code, rec.Body.String())
	}
	var payment struct {
		Status string `json:"status"`
	}
	decodeData(t, rec, &payment)
	if payment.Status != "held_in_escrow" {
		t.Fatalf("payment status: %s", payment.Status)
	}
}

func TestCreateHoldWithoutIdempotencyKey(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{})
	shipper := signToken(t, testSecret, "ship_1", "shipper")

	rec := doJSON(t, router, http.MethodPost, "/payments/v1/escrow/holds", shipper, contracts.CreateHoldRequest{
		LoadID: "l1", BidID: "b1", CarrierID: "c1", Amount: 100,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "IDEMPOTENCY_KEY_REQUIRED" {
		t.Fatalf("error code: %s", code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{})
	shipper := signToken(t, testSecret, "ship_1", "shipper")

	rec := doJSON(t, router, http.MethodPost, "/payments/v1/loads", shipper, map[string]any{
		"origin_city": "Dallas",
		"surprise":    true,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("error code: %s", code)
	}
}

func TestRateLimitCapsCaller(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{
		RateLimits:         memory.NewRateLimiter(),
		RateLimitPerMinute: 2,
	})
	shipper := signToken(t, testSecret, "ship_1", "shipper")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodGet, "/payments/v1/loads/missing", shipper, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := doJSON(t, router, http.MethodGet, "/payments/v1/loads/missing", shipper, nil, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("limited request: %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "RATE_LIMITED" {
		t.Fatalf("error code: %s", code)
	}
}

func TestSweepEndpointsAdminOnly(t *testing.T) {
	router := newTestRouter(t, HandlerOptions{})
	shipper := signToken(t, testSecret, "ship_1", "shipper")
	admin := signToken(t, testSecret, "adm_1", "admin")

	rec := doJSON(t, router, http.MethodPost, "/payments/v1/sweeps/expire-bids", shipper, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("shipper sweep: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/payments/v1/sweeps/expire-bids", admin, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin sweep: %d %s", rec.Code, rec.Body.String())
	}
}
