package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/schemakit/internal/auth"
	"github.com/danmuck/schemakit/internal/jsonld"
	"github.com/danmuck/schemakit/internal/ratelimit"
	"github.com/danmuck/schemakit/internal/schema"
	"github.com/danmuck/schemakit/internal/schemas"
	"github.com/danmuck/schemakit/internal/store"
	"github.com/danmuck/schemakit/internal/testutil/testlog"
)

const (
	ownerToken    = "owner-token"
	intruderToken = "intruder-token"
)

type harness struct {
	srv   *Server
	store store.Store
}

func newHarness(t *testing.T, rules Rules, st store.Store, opts ...schemas.Option) *harness {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	if st == nil {
		st = store.NewMemory()
	}
	limiter := ratelimit.NewMemory()
	t.Cleanup(func() { _ = limiter.Close() })

	srv := New(Options{ID: "test", CorsOrigins: []string{"https://app.example"}}, Deps{
		Service: schemas.New(st, opts...),
		Store:   st,
		Limiter: limiter,
		Auth:    auth.StaticTokens{ownerToken: "owner", intruderToken: "intruder"},
		Rules:   rules,
		Logger:  log.Logger,
	})
	return &harness{srv: srv, store: st}
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	return h.doFrom("", method, path, body, headers)
}

// doFrom sends the request from the socket peer remote; empty keeps the
// httptest default of 192.0.2.1.
func (h *harness) doFrom(remote, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func productBody(dynamic bool) string {
	return `{
		"type": "product",
		"name": "Widget",
		"dynamic": ` + strconv.FormatBool(dynamic) + `,
		"productData": {
			"name": "Widget",
			"brand": "Acme",
			"price": "19.99",
			"availability": "InStock",
			"url": "https://example.com/w"
		}
	}`
}

func (h *harness) create(t *testing.T, dynamic bool) string {
	t.Helper()
	rec := h.do(http.MethodPost, "/api/schemas", productBody(dynamic), bearer(ownerToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	id, _ := body["schemaId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateAndFetch(t *testing.T) {
	h := newHarness(t, Rules{}, nil)

	rec := h.do(http.MethodPost, "/api/schemas", productBody(true), bearer(ownerToken))
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["dynamic"])
	id := body["schemaId"].(string)
	assert.Len(t, id, store.IDLength)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = h.do(http.MethodGet, "/api/schemas?id="+id, "", bearer(ownerToken))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	doc := body["schema"].(map[string]any)
	assert.Equal(t, id, doc[schema.FieldID])
	assert.Equal(t, "owner", doc[schema.FieldUserID])
}

func TestFetchIsScopedToOwner(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	id := h.create(t, true)

	rec := h.do(http.MethodGet, "/api/schemas?id="+id, "", bearer(intruderToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.NotContains(t, rec.Body.String(), "Widget")

	rec = h.do(http.MethodPatch, "/api/schemas/"+id, `{"name":"Stolen"}`, bearer(intruderToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	cases := []struct{ method, path, body string }{
		{http.MethodPost, "/api/schemas", productBody(true)},
		{http.MethodGet, "/api/schemas?id=abc", ""},
		{http.MethodPatch, "/api/schemas/abc", `{"name":"x"}`},
		{http.MethodPost, "/api/schemas/preview", productBody(true)},
	}
	for _, tc := range cases {
		for _, headers := range []map[string]string{nil, bearer("wrong"), {"Authorization": "Basic abc"}} {
			rec := h.do(tc.method, tc.path, tc.body, headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.path)
			body := decodeBody(t, rec)
			assert.Equal(t, "UNAUTHORIZED", body["code"])
			assert.Equal(t, false, body["success"])
		}
	}
}

func TestValidationFailuresListEveryViolation(t *testing.T) {
	h := newHarness(t, Rules{}, nil)

	rec := h.do(http.MethodPost, "/api/schemas",
		`{"type":"product","name":"","productData":{"price":"abc","url":"nope","priceCurrency":"US"}}`,
		bearer(ownerToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	details := body["details"].([]any)
	assert.GreaterOrEqual(t, len(details), 4)
	first := details[0].(map[string]any)
	assert.Contains(t, first, "path")
	assert.Contains(t, first, "message")

	rec = h.do(http.MethodPost, "/api/schemas", `{"name":"no type"}`, bearer(ownerToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["details"])

	rec = h.do(http.MethodPost, "/api/schemas", `{not json`, bearer(ownerToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decodeBody(t, rec)
	details = body["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, []any{"body"}, details[0].(map[string]any)["path"])
}

func TestTrailingBodyContentIsInvalidJSON(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	tests := []struct {
		name string
		body string
	}{
		{"second object", productBody(true) + `{"extra":1}`},
		{"garbage", productBody(true) + ` trailing`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/schemas", tc.body, bearer(ownerToken))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			details := body["details"].([]any)
			require.Len(t, details, 1)
			d := details[0].(map[string]any)
			assert.Equal(t, []any{"body"}, d["path"])
			assert.Equal(t, "Invalid JSON", d["message"])
		})
	}
}

func TestIdentifierValidation(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	for _, id := range []string{"", "has%20space", strings.Repeat("a", 51)} {
		rec := h.do(http.MethodGet, "/api/schemas?id="+id, "", bearer(ownerToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["code"])
	}
	rec := h.do(http.MethodGet, "/api/schemas?id=abc-123_XYZ", "", bearer(ownerToken))
	assert.Equal(t, http.StatusNotFound, rec.Code, "a well-formed id reaches the store")
}

func TestRenderDynamicGate(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	static := h.create(t, false)
	live := h.create(t, true)

	rec := h.do(http.MethodGet, "/api/schemas/"+static, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "SCHEMA_ERROR", body["code"])
	assert.Equal(t, "This is not a dynamic schema", body["error"])

	rec = h.do(http.MethodGet, "/api/schemas/"+live, "", map[string]string{"Origin": "https://shop.elsewhere"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, jsonld.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	raw, err := jsonld.Extract(rec.Body.String())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "https://schema.org", doc["@context"])
	assert.Equal(t, "Product", doc["@type"])
	offers := doc["offers"].(map[string]any)
	assert.Equal(t, "https://schema.org/InStock", offers["availability"])

	rec = h.do(http.MethodGet, "/api/schemas/unknown123", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSRestrictsProtectedRoutes(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	headers := bearer(ownerToken)
	headers["Origin"] = "https://evil.example"
	rec := h.do(http.MethodPost, "/api/schemas", productBody(true), headers)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	headers["Origin"] = "https://app.example"
	rec = h.do(http.MethodPost, "/api/schemas", productBody(true), headers)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPrecedesAuth(t *testing.T) {
	rule := ratelimit.Rule{Limit: 3, Window: time.Minute}
	h := newHarness(t, Rules{Create: rule, Update: rule}, nil)

	for i := 0; i < 3; i++ {
		rec := h.do(http.MethodPost, "/api/schemas", productBody(false), bearer(ownerToken))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	// no credentials at all: the limiter still answers first
	rec := h.do(http.MethodPost, "/api/schemas", productBody(false), nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry >= 1 && retry <= 60, "retry=%d", retry)
	assert.Equal(t, float64(retry), body["retryAfter"])

	// PATCH follows the same order
	for i := 0; i < 3; i++ {
		h.do(http.MethodPatch, "/api/schemas/abc", `{"name":"x"}`, nil)
	}
	rec = h.do(http.MethodPatch, "/api/schemas/abc", `{"name":"x"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitKeysOnForwardedIdentity(t *testing.T) {
	h := newHarness(t, Rules{Render: ratelimit.Rule{Limit: 1, Window: time.Minute}}, nil)
	const proxy = "127.0.0.1:40000"

	first := map[string]string{"X-Forwarded-For": "203.0.113.7"}
	second := map[string]string{"X-Forwarded-For": "198.51.100.2"}
	assert.Equal(t, http.StatusNotFound, h.doFrom(proxy, http.MethodGet, "/api/schemas/abc", "", first).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.doFrom(proxy, http.MethodGet, "/api/schemas/abc", "", first).Code)
	assert.Equal(t, http.StatusNotFound, h.doFrom(proxy, http.MethodGet, "/api/schemas/abc", "", second).Code)
}

func TestRateLimitIgnoresForwardingFromUntrustedPeers(t *testing.T) {
	h := newHarness(t, Rules{Render: ratelimit.Rule{Limit: 1, Window: time.Minute}}, nil)
	const peer = "192.0.2.1:5555"

	rec := h.doFrom(peer, http.MethodGet, "/api/schemas/abc", "", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	for i := 2; i <= 6; i++ {
		headers := map[string]string{
			"X-Forwarded-For": "10.0.0." + strconv.Itoa(i),
			"X-Real-IP":       "10.0.1." + strconv.Itoa(i),
		}
		rec = h.doFrom(peer, http.MethodGet, "/api/schemas/abc", "", headers)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, "rotation %d", i)
	}
}

func TestUpdate(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	id := h.create(t, true)

	rec := h.do(http.MethodPatch, "/api/schemas/"+id, `{"name":"Renamed"}`, bearer(ownerToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"success": true}, decodeBody(t, rec))

	rec = h.do(http.MethodPatch, "/api/schemas/"+id, `{"userId":"intruder"}`, bearer(ownerToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPatch, "/api/schemas/"+id, `{"type":"product","name":"x","productData":{}}`, bearer(ownerToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/schemas?id="+id, "", bearer(ownerToken))
	doc := decodeBody(t, rec)["schema"].(map[string]any)
	assert.Equal(t, "Renamed", doc[schema.FieldName])
	assert.Equal(t, "owner", doc[schema.FieldUserID])
}

func TestUpdateRejectsSnapshots(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	id := h.create(t, false)

	rec := h.do(http.MethodPatch, "/api/schemas/"+id, `{"name":"changed","dynamic":true}`, bearer(ownerToken))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "SCHEMA_ERROR", body["code"])
	assert.Equal(t, "This is not a dynamic schema", body["error"])

	rec = h.do(http.MethodGet, "/api/schemas/"+id, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/schemas?id="+id, "", bearer(ownerToken))
	doc := decodeBody(t, rec)["schema"].(map[string]any)
	assert.Equal(t, "Widget", doc[schema.FieldName])
	assert.Equal(t, false, doc[schema.FieldDynamic])
}

func TestPreview(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	rec := h.do(http.MethodPost, "/api/schemas/preview", productBody(false), bearer(ownerToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Product", body["document"].(map[string]any)["@type"])
	assert.True(t, strings.HasPrefix(body["jsonLd"].(string), `<script type="application/ld+json">`))
}

type brokenStore struct{ store.Store }

func (brokenStore) Insert(context.Context, schema.Document) error {
	return errors.New("dial tcp 10.0.0.5:27017: connection refused")
}
func (brokenStore) Ping(context.Context) error { return errors.New("no reachable servers") }

func TestInternalFailuresAreSanitized(t *testing.T) {
	h := newHarness(t, Rules{}, brokenStore{store.NewMemory()})
	rec := h.do(http.MethodPost, "/api/schemas", productBody(true), bearer(ownerToken))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "DATABASE_ERROR", body["code"])
	assert.Equal(t, "Failed to save schema", body["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")

	rec = h.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = newHarness(t, Rules{}, nil, schemas.WithIDGenerator(func() (string, error) {
		return "", errors.New("entropy source /dev/urandom exhausted")
	}))
	rec = h.do(http.MethodPost, "/api/schemas", productBody(true), bearer(ownerToken))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "An unexpected error occurred", body["error"])
	assert.NotContains(t, rec.Body.String(), "urandom")
}

func TestHealthReadyMetrics(t *testing.T) {
	h := newHarness(t, Rules{}, nil)
	rec := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = h.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ready"])

	h.create(t, true)
	rec = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schemakit_api_results_total")
}

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		headers map[string]string
		remote  string
		want    string
	}{
		{"trusted proxy forwards", nil, map[string]string{"X-Forwarded-For": "1.1.1.1"}, "127.0.0.1:1", "1.1.1.1"},
		{"trusted chain keeps nearest untrusted hop", nil, map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "127.0.0.1:1", "2.2.2.2"},
		{"trusted proxy real ip", nil, map[string]string{"X-Real-IP": "3.3.3.3"}, "127.0.0.1:1", "3.3.3.3"},
		{"untrusted peer forwarding ignored", nil, map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "9.9.9.9"},
		{"configured proxy", []string{"10.0.0.0/8"}, map[string]string{"X-Forwarded-For": "4.4.4.4"}, "10.1.2.3:1", "4.4.4.4"},
		{"invalid proxies fall back to loopback", []string{"not-an-ip"}, map[string]string{"X-Forwarded-For": "4.4.4.4"}, "10.1.2.3:1", "10.1.2.3"},
		{"peer", nil, nil, "9.9.9.9:1234", "9.9.9.9"},
		{"unknown", nil, nil, "", "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testlog.Start(t)
			gin.SetMode(gin.TestMode)
			r := gin.New()
			trustProxies(r, tc.trusted, log.Logger)
			var got string
			r.GET("/", func(c *gin.Context) { got = clientIdentity(c) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, got)
		})
	}
}
