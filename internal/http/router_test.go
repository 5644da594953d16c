package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/fetchbin/internal/config"
	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/http/middleware"
	"github.com/tbourn/fetchbin/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api",
		PublicURL:      "https://fb.test",
		RateRPS:        100,
		RateBurst:      100,
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, Deps{DB: db, Version: "test"}, cfg)
	return r, db
}

func send(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type shareResp struct {
	URL       string `json:"url"`
	DeleteURL string `json:"delete_url"`
}

func share(t *testing.T, r http.Handler, body string, hdr ...string) (*httptest.ResponseRecorder, shareResp) {
	t.Helper()
	w := send(r, http.MethodPost, "/api/share", body, hdr...)
	var sr shareResp
	if w.Code == http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &sr); err != nil {
			t.Fatalf("decode share: %v", err)
		}
	}
	return w, sr
}

func lastSegment(u string) string { return u[strings.LastIndex(u, "/")+1:] }

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	for _, p := range []string{"/health", "/healthcheck"} {
		w := send(r, http.MethodGet, p, "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", p, w.Code)
		}
		// CORS (AllowAllOrigins) → header "*"
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("AllowAllOrigins expected '*', got %q", got)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["status"] != "ok" || body["version"] != "test" {
			t.Fatalf("health body %q err=%v", w.Body.String(), err)
		}
	}

	// /metrics is wired
	w := send(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fetchbin_http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d", w.Code)
	}

	// NoRoute → 404
	w = send(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = send(r, http.MethodPost, "/health", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newRouter(t, cfg)

	w := send(r, http.MethodGet, "/health", "", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestEndToEnd_ShareVoteListDelete(t *testing.T) {
	r, db := newRouter(t, testConfig())

	w, sr := share(t, r, `{"content":"hello\nworld","label":"echo"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("share = %d %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(sr.URL, "https://fb.test/output/") || !strings.HasPrefix(sr.DeleteURL, "https://fb.test/delete/") {
		t.Fatalf("urls: %+v", sr)
	}
	id, token := lastSegment(sr.URL), lastSegment(sr.DeleteURL)
	if id == token {
		t.Fatalf("public id and delete token must differ")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("share response must not be cacheable, Cache-Control=%q", cc)
	}

	// JSON record
	w = send(r, http.MethodGet, "/api/output/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var rec map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if rec["content"] != "hello\nworld" || rec["label"] != "echo" {
		t.Fatalf("record: %v", rec)
	}
	if strings.Contains(w.Body.String(), token) {
		t.Fatalf("delete token leaked in record")
	}

	// View URL and raw serve inert text
	for _, p := range []string{"/output/" + id, "/raw/" + id} {
		w = send(r, http.MethodGet, p, "")
		if w.Code != http.StatusOK || w.Body.String() != "hello\nworld" {
			t.Fatalf("%s = %d %q", p, w.Code, w.Body.String())
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
			t.Fatalf("%s content-type %q", p, w.Header().Get("Content-Type"))
		}
		if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "sandbox") {
			t.Fatalf("%s missing sandbox CSP: %q", p, csp)
		}
	}

	// Votes: one per address, either direction
	w = send(r, http.MethodPost, "/api/output/"+id+"/upvote", "", "X-Forwarded-For", "198.51.100.7")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"upvotes":1,"downvotes":0}` {
		t.Fatalf("upvote = %d %s", w.Code, w.Body.String())
	}
	w = send(r, http.MethodPost, "/api/output/"+id+"/downvote", "", "X-Forwarded-For", "198.51.100.7")
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "already_voted") {
		t.Fatalf("second vote = %d %s", w.Code, w.Body.String())
	}
	w = send(r, http.MethodPost, "/api/output/"+id+"/downvote", "", "X-Forwarded-For", "198.51.100.8")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"upvotes":1,"downvotes":1}` {
		t.Fatalf("downvote = %d %s", w.Code, w.Body.String())
	}
	w = send(r, http.MethodPost, "/api/output/missing/upvote", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("vote on missing = %d", w.Code)
	}

	// Hidden shares stay out of listings but are reachable by id
	w, hidden := share(t, r, `{"content":"secret","is_hidden":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("hidden share = %d", w.Code)
	}
	w = send(r, http.MethodGet, "/api/outputs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var items []domain.Output
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].PublicID != id {
		t.Fatalf("listing: %+v", items)
	}
	if w = send(r, http.MethodGet, "/api/output/"+lastSegment(hidden.URL), ""); w.Code != http.StatusOK {
		t.Fatalf("hidden get = %d", w.Code)
	}

	// Conditional listing
	etag := send(r, http.MethodGet, "/api/outputs", "").Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	if w = send(r, http.MethodGet, "/api/outputs", "", "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("conditional list = %d", w.Code)
	}

	// Stats
	w = send(r, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":2`) {
		t.Fatalf("stats = %d %s", w.Code, w.Body.String())
	}

	// Delete: confirm, remove, then gone everywhere
	w = send(r, http.MethodGet, "/delete/"+token, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Fatalf("confirm = %d %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("confirm page must not be cacheable, Cache-Control=%q", cc)
	}
	if w = send(r, http.MethodPost, "/delete/"+token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w = send(r, http.MethodPost, "/delete/"+token, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", w.Code)
	}
	if w = send(r, http.MethodGet, "/api/output/"+id, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", w.Code)
	}
	var votes int64
	db.Model(&domain.Vote{}).Count(&votes)
	if votes != 0 {
		t.Fatalf("votes must go with the output, %d left", votes)
	}
}

func TestShare_ValidationThroughStack(t *testing.T) {
	r, db := newRouter(t, testConfig())

	w, _ := share(t, r, `{"content":"   \n"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_request") {
		t.Fatalf("blank = %d %s", w.Code, w.Body.String())
	}

	big := strings.Repeat("x", domain.MaxContentBytes+1)
	w, _ = share(t, r, `{"content":"`+big+`"}`)
	if w.Code != http.StatusRequestEntityTooLarge || !strings.Contains(w.Body.String(), "payload_too_large") {
		t.Fatalf("oversized = %d", w.Code)
	}

	var n int64
	db.Model(&domain.Output{}).Count(&n)
	if n != 0 {
		t.Fatalf("rejected shares must not be stored, got %d rows", n)
	}
}

func TestShare_IdempotentReplay(t *testing.T) {
	r, db := newRouter(t, testConfig())

	w1, first := share(t, r, `{"content":"once"}`, middleware.HeaderIdempotencyKey, "k-123")
	if w1.Code != http.StatusCreated || w1.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first = %d replayed=%q", w1.Code, w1.Header().Get("Idempotency-Replayed"))
	}
	w2, second := share(t, r, `{"content":"once"}`, middleware.HeaderIdempotencyKey, "k-123")
	if w2.Code != http.StatusCreated || w2.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay = %d replayed=%q", w2.Code, w2.Header().Get("Idempotency-Replayed"))
	}
	if first != second {
		t.Fatalf("replay must return the same urls: %+v vs %+v", first, second)
	}

	// Same key from another address is a new share.
	w3, third := share(t, r, `{"content":"once"}`, middleware.HeaderIdempotencyKey, "k-123", "X-Forwarded-For", "203.0.113.50")
	if w3.Code != http.StatusCreated || third == first {
		t.Fatalf("other client = %d %+v", w3.Code, third)
	}

	var n int64
	db.Model(&domain.Output{}).Count(&n)
	if n != 2 {
		t.Fatalf("expected 2 stored outputs, got %d", n)
	}

	// Malformed keys are rejected before the handler.
	w, _ := share(t, r, `{"content":"x"}`, middleware.HeaderIdempotencyKey, "bad key!")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad key = %d", w.Code)
	}
}

func TestWriteRoutes_RateLimitedPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0
	cfg.RateBurst = 1
	r, _ := newRouter(t, cfg)

	w, sr := share(t, r, `{"content":"a"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("first = %d", w.Code)
	}
	w, _ = share(t, r, `{"content":"b"}`)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("second = %d", w.Code)
	}
	// Another address has its own bucket.
	w, _ = share(t, r, `{"content":"c"}`, "X-Forwarded-For", "203.0.113.9")
	if w.Code != http.StatusCreated {
		t.Fatalf("other ip = %d", w.Code)
	}
	// Reads are not limited.
	for i := 0; i < 3; i++ {
		if w = send(r, http.MethodGet, "/raw/"+lastSegment(sr.URL), ""); w.Code != http.StatusOK {
			t.Fatalf("read %d = %d", i, w.Code)
		}
	}
}

func TestGzip_Negotiated(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	w := send(r, http.MethodGet, "/api/outputs", "", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("status=%d encoding=%q", w.Code, w.Header().Get("Content-Encoding"))
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses otel + request id + security headers.
func TestPipeline_Smoke(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r, _ := newRouter(t, cfg)

	w := send(r, http.MethodGet, "/health", "", "X-Forwarded-Proto", "https")
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS on https request")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected baseline security headers")
	}
}
