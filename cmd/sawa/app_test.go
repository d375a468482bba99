package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sawa/internal/app/principal"
	"sawa/internal/domain/cancellation"
	"sawa/internal/infra/config"
	ginserver "sawa/internal/infra/http/gin"
	"sawa/internal/infra/obs"
	"sawa/internal/infra/security"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  storage
	tokens map[string]string
}

func newHarness(t *testing.T, rateLimit int) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := map[string]string{}
	var entries []string
	for id, roles := range map[string][]principal.Role{
		"admin-1":    {principal.RoleAdmin},
		"host-1":     {principal.RoleHost},
		"host-2":     {principal.RoleHost},
		"traveler-1": {principal.RoleTraveler},
	} {
		token, entry, err := security.Issue(id, roles, security.SecretGenerator{}, security.BcryptHasher{Cost: bcrypt.MinCost})
		require.NoError(t, err)
		tokens[id] = token
		entries = append(entries, entry)
	}
	keys, err := security.ParseKeyring(strings.Join(entries, ","))
	require.NoError(t, err)

	cfg := config.Config{
		Env:             "test",
		IdempotencyTTL:  time.Hour,
		RateLimit:       rateLimit,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemoryStorage(cfg.IdempotencyTTL)
	app := buildApplication(dependencies{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		policies: cancellation.DefaultRegistry,
		keys:     keys,
		now:      func() time.Time { return fixedNow },
	})
	router := ginserver.NewRouter(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: store.ready}, app.handlers)
	return &harness{t: t, router: router, store: store, tokens: tokens}
}

func (h *harness) do(method, path, as string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+h.tokens[as])
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPricingPreview_CoercesFormInput(t *testing.T) {
	h := newHarness(t, 0)
	rec := h.do(http.MethodPost, "/api/v1/pricing/preview", "", map[string]any{
		"hostType":  "boutique",
		"basePrice": "100",
		"overrides": map[string]any{"sawa": "oops"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 0.0, body["platformFeePercent"])
	assert.Equal(t, 100.0, body["totalPrice"])
	assert.Equal(t, "boutique", body["hostType"])
}

func TestPricingQuote_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, 0)
	rec := h.do(http.MethodPost, "/api/v1/pricing/quote", "", map[string]any{
		"hostType":  "office",
		"basePrice": 100,
		"overrides": map[string]any{"sawa": 140},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.NotEmpty(t, body["fields"])

	ok := h.do(http.MethodPost, "/api/v1/pricing/quote", "", map[string]any{"hostType": "office", "basePrice": 100})
	require.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, 135.0, decode(t, ok)["totalPrice"])
}

func TestAdminCommission_SetQuoteAndIdempotency(t *testing.T) {
	h := newHarness(t, 0)
	payload := map[string]any{"hostType": "office", "overrides": map[string]any{"sawa": 20, "office": 5}}

	forbidden := h.do(http.MethodPut, "/api/v1/admin/hosts/host-1/commission", "host-1", payload)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	anonymous := h.do(http.MethodPut, "/api/v1/admin/hosts/host-1/commission", "", payload)
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	first := h.do(http.MethodPut, "/api/v1/admin/hosts/host-1/commission", "admin-1", payload, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	profile := decode(t, first)
	assert.Equal(t, 20.0, profile["platformFeePercent"])
	assert.Equal(t, "admin-1", profile["updatedBy"])

	replay := h.do(http.MethodPut, "/api/v1/admin/hosts/host-1/commission", "admin-1", payload, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	got := h.do(http.MethodGet, "/api/v1/admin/hosts/host-1/commission", "admin-1", nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, 1.0, decode(t, got)["version"])

	quote := h.do(http.MethodGet, "/api/v1/hosts/host-1/quote?price=200", "", nil)
	require.Equal(t, http.StatusOK, quote.Code, quote.Body.String())
	breakdown := decode(t, quote)["breakdown"].(map[string]any)
	assert.Equal(t, 250.0, breakdown["totalPrice"])

	missing := h.do(http.MethodGet, "/api/v1/hosts/nobody/quote?price=200", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	badPrice := h.do(http.MethodGet, "/api/v1/hosts/host-1/quote?price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, badPrice.Code)
}

func TestAdminCommission_Preview(t *testing.T) {
	h := newHarness(t, 0)
	rec := h.do(http.MethodPost, "/api/v1/admin/hosts/host-1/commission/preview", "admin-1", map[string]any{
		"hostType":  "freelancer",
		"basePrice": 100,
		"overrides": map[string]any{"sawa": 10},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 110.0, decode(t, rec)["totalPrice"])

	doc, err := h.store.outbox.Claim(context.Background(), "test")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestOffers_CreateListWithdraw(t *testing.T) {
	h := newHarness(t, 0)
	create := h.do(http.MethodPost, "/api/v1/offers", "host-1", map[string]any{
		"hostType":   "office",
		"travelerId": "traveler-1",
		"basePrice":  100,
	})
	require.Equal(t, http.StatusCreated, create.Code, create.Body.String())
	offer := decode(t, create)
	assert.Equal(t, "host-1", offer["hostId"])
	assert.Equal(t, "PENDING", offer["status"])
	offerID := offer["id"].(string)

	notMine := h.do(http.MethodPost, "/api/v1/offers", "host-1", map[string]any{
		"hostId":     "host-2",
		"hostType":   "office",
		"travelerId": "traveler-1",
		"basePrice":  100,
	})
	assert.Equal(t, http.StatusForbidden, notMine.Code)

	asTraveler := h.do(http.MethodPost, "/api/v1/offers", "traveler-1", map[string]any{"travelerId": "x", "basePrice": 1})
	assert.Equal(t, http.StatusForbidden, asTraveler.Code)

	list := h.do(http.MethodGet, "/api/v1/hosts/host-1/offers", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, 1.0, decode(t, list)["total"])

	stolen := h.do(http.MethodPost, "/api/v1/offers/"+offerID+"/withdraw", "host-2", nil)
	assert.Equal(t, http.StatusForbidden, stolen.Code)

	withdrawn := h.do(http.MethodPost, "/api/v1/offers/"+offerID+"/withdraw", "host-1", nil)
	require.Equal(t, http.StatusOK, withdrawn.Code, withdrawn.Body.String())
	assert.Equal(t, "WITHDRAWN", decode(t, withdrawn)["status"])

	again := h.do(http.MethodPost, "/api/v1/offers/"+offerID+"/withdraw", "host-1", nil)
	assert.Equal(t, http.StatusConflict, again.Code)

	unknown := h.do(http.MethodGet, "/api/v1/offers/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestCancellation_PreviewRecordAndGet(t *testing.T) {
	h := newHarness(t, 0)

	policies := h.do(http.MethodGet, "/api/v1/cancellation/policies", "", nil)
	require.Equal(t, http.StatusOK, policies.Code)
	assert.Equal(t, cancellation.Moderate, decode(t, policies)["fallback"])

	preview := h.do(http.MethodPost, "/api/v1/cancellation/preview", "", map[string]any{
		"totalPrice": 500,
		"startDate":  "2025-06-11",
		"policy":     "strict",
	})
	require.Equal(t, http.StatusOK, preview.Code, preview.Body.String())
	assert.Equal(t, 250.0, decode(t, preview)["refundAmount"])

	body := map[string]any{
		"actor":      "traveler",
		"reason":     "emergency",
		"totalPrice": 200,
		"startDate":  "2025-06-03",
		"policy":     "moderate",
	}
	hostAsTraveler := h.do(http.MethodPost, "/api/v1/bookings/bk-1/cancel", "host-1", body)
	assert.Equal(t, http.StatusForbidden, hostAsTraveler.Code)

	created := h.do(http.MethodPost, "/api/v1/bookings/bk-1/cancel", "traveler-1", body, "Idempotency-Key", "c-1")
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	record := decode(t, created)
	assert.Equal(t, "emergency", record["reason"])
	refund := record["refund"].(map[string]any)
	assert.Equal(t, 0.0, refund["refundAmount"])
	assert.Equal(t, 200.0, refund["cancellationFee"])

	replay := h.do(http.MethodPost, "/api/v1/bookings/bk-1/cancel", "traveler-1", body, "Idempotency-Key", "c-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, created.Body.String(), replay.Body.String())

	duplicate := h.do(http.MethodPost, "/api/v1/bookings/bk-1/cancel", "traveler-1", body)
	assert.Equal(t, http.StatusConflict, duplicate.Code)

	got := h.do(http.MethodGet, "/api/v1/bookings/bk-1/cancellation", "", nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "bk-1", decode(t, got)["bookingId"])

	none := h.do(http.MethodGet, "/api/v1/bookings/bk-2/cancellation", "", nil)
	assert.Equal(t, http.StatusNotFound, none.Code)
}

func TestIdempotencyKey_ScopedToCallerAndRequest(t *testing.T) {
	h := newHarness(t, 0)

	mine := h.do(http.MethodPost, "/api/v1/offers", "host-1", map[string]any{
		"hostType":   "office",
		"travelerId": "traveler-1",
		"basePrice":  100,
	}, "Idempotency-Key", "k")
	require.Equal(t, http.StatusCreated, mine.Code, mine.Body.String())
	first := decode(t, mine)

	theirs := h.do(http.MethodPost, "/api/v1/offers", "host-2", map[string]any{
		"hostType":   "freelancer",
		"travelerId": "traveler-1",
		"basePrice":  999,
	}, "Idempotency-Key", "k")
	require.Equal(t, http.StatusCreated, theirs.Code, theirs.Body.String())
	second := decode(t, theirs)
	assert.Equal(t, "host-2", second["hostId"])
	assert.NotEqual(t, first["id"], second["id"])

	list := h.do(http.MethodGet, "/api/v1/hosts/host-2/offers", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, 1.0, decode(t, list)["total"])

	body := map[string]any{
		"actor":      "traveler",
		"totalPrice": 200,
		"startDate":  "2025-07-01",
	}
	cancelA := h.do(http.MethodPost, "/api/v1/bookings/bk-A/cancel", "traveler-1", body, "Idempotency-Key", "same")
	require.Equal(t, http.StatusCreated, cancelA.Code, cancelA.Body.String())
	assert.Equal(t, "bk-A", decode(t, cancelA)["bookingId"])

	cancelB := h.do(http.MethodPost, "/api/v1/bookings/bk-B/cancel", "traveler-1", body, "Idempotency-Key", "same")
	assert.Equal(t, http.StatusUnprocessableEntity, cancelB.Code, cancelB.Body.String())
	assert.NotContains(t, cancelB.Body.String(), "bk-A")

	none := h.do(http.MethodGet, "/api/v1/bookings/bk-B/cancellation", "", nil)
	assert.Equal(t, http.StatusNotFound, none.Code)

	fresh := h.do(http.MethodPost, "/api/v1/bookings/bk-B/cancel", "traveler-1", body, "Idempotency-Key", "other")
	require.Equal(t, http.StatusCreated, fresh.Code, fresh.Body.String())
	assert.Equal(t, "bk-B", decode(t, fresh)["bookingId"])
}

func TestCommittedWritesReachTheOutbox(t *testing.T) {
	h := newHarness(t, 0)
	rec := h.do(http.MethodPost, "/api/v1/bookings/bk-9/cancel", "traveler-1", map[string]any{
		"actor":      "traveler",
		"totalPrice": 100,
		"startDate":  "2025-07-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	doc, err := h.store.outbox.Claim(context.Background(), "test")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, cancellation.EventRecorded, doc.Name)
	assert.Equal(t, "bk-9", doc.Aggregate)
	assert.NotEmpty(t, doc.Headers["request_id"])
}

func TestAuthAndRateLimit(t *testing.T) {
	h := newHarness(t, 2)

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/cancellation/policies", nil)
	bad.Header.Set("Authorization", "Bearer admin-1.wrong")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 0; i < 2; i++ {
		ok := h.do(http.MethodGet, "/api/v1/cancellation/policies", "traveler-1", nil)
		require.Equal(t, http.StatusOK, ok.Code)
	}
	limited := h.do(http.MethodGet, "/api/v1/cancellation/policies", "traveler-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	other := h.do(http.MethodGet, "/api/v1/cancellation/policies", "host-1", nil)
	assert.Equal(t, http.StatusOK, other.Code)

	live := h.do(http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, live.Code)
}

func TestKeygen(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, keygen([]string{"-id", "ops", "-roles", "admin,host", "-cost", "4"}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	token := strings.TrimPrefix(lines[0], "token: ")
	entry := strings.TrimPrefix(lines[1], "API_KEYS entry: ")

	ring, err := security.ParseKeyring(entry)
	require.NoError(t, err)
	p, err := ring.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", p.ID)
	assert.True(t, p.HasRole(principal.RoleHost))

	assert.Error(t, keygen([]string{"-id", ""}, &out))
}
