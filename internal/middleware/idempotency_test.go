package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/goodjobs/pkg/jwt"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestStore(t *testing.T) *IdempotencyStore {
	t.Helper()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: time.Hour, Cleanup: time.Hour})
	t.Cleanup(store.Stop)
	return store
}

// countingHandler answers with a body that changes on every call
type countingHandler struct {
	calls  atomic.Int32
	status int
	delay  time.Duration
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.calls.Add(1)
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("X-Call", string(rune('0'+n)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func transferRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/goodjobs/transfer", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

// ============================================================================
// generateKey Tests
// ============================================================================

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	base := generateKey("user:1", "k", "POST", "/p", []byte("b"))
	if base != generateKey("user:1", "k", "POST", "/p", []byte("b")) {
		t.Error("expected deterministic key")
	}

	variants := []string{
		generateKey("user:2", "k", "POST", "/p", []byte("b")),
		generateKey("user:1", "k2", "POST", "/p", []byte("b")),
		generateKey("user:1", "k", "PATCH", "/p", []byte("b")),
		generateKey("user:1", "k", "POST", "/q", []byte("b")),
		generateKey("user:1", "k", "POST", "/p", []byte("c")),
		// field boundaries must not collide
		generateKey("user:1k", "", "POST", "/p", []byte("b")),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base key", i)
		}
	}
}

// ============================================================================
// Idempotency Middleware Tests
// ============================================================================

func TestIdempotency_SkipsSafeMethods(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{}
	mw := Idempotency(newTestStore(t))(handler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/goodjobs", nil)
		req.Header.Set(IdempotencyKeyHeader, "same")
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}

	if handler.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", handler.calls.Load())
	}
}

func TestIdempotency_NoKey_ProcessesEveryRequest(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{}
	mw := Idempotency(newTestStore(t))(handler)

	mw.ServeHTTP(httptest.NewRecorder(), transferRequest("", `{"toUserId":2}`))
	mw.ServeHTTP(httptest.NewRecorder(), transferRequest("", `{"toUserId":2}`))

	if handler.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", handler.calls.Load())
	}
}

func TestIdempotency_Replay(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{}
	mw := Idempotency(newTestStore(t))(handler)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, transferRequest("abc", `{"toUserId":2}`))
	second := httptest.NewRecorder()
	mw.ServeHTTP(second, transferRequest("abc", `{"toUserId":2}`))

	if handler.calls.Load() != 1 {
		t.Fatalf("expected handler to run once, got %d", handler.calls.Load())
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay marker")
	}
	if second.Header().Get("X-Call") != "1" || second.Body.String() != `{"toUserId":2}` {
		t.Errorf("expected original response, got %q %q", second.Header().Get("X-Call"), second.Body.String())
	}
}

func TestIdempotency_DifferentCallers_NotShared(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{}
	mw := Idempotency(newTestStore(t))(handler)

	for _, id := range []int64{1, 2} {
		req := transferRequest("abc", `{}`)
		req = req.WithContext(WithClaims(req.Context(), &jwt.Claims{UserID: id}))
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}

	if handler.calls.Load() != 2 {
		t.Errorf("expected each caller to run, got %d calls", handler.calls.Load())
	}
}

func TestIdempotency_ServerError_NotCached(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{status: http.StatusInternalServerError}
	mw := Idempotency(newTestStore(t))(handler)

	mw.ServeHTTP(httptest.NewRecorder(), transferRequest("abc", `{}`))
	mw.ServeHTTP(httptest.NewRecorder(), transferRequest("abc", `{}`))

	if handler.calls.Load() != 2 {
		t.Errorf("expected retry after 500, got %d calls", handler.calls.Load())
	}
}

func TestIdempotency_ClientError_Cached(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{status: http.StatusForbidden}
	mw := Idempotency(newTestStore(t))(handler)

	mw.ServeHTTP(httptest.NewRecorder(), transferRequest("abc", `{}`))
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, transferRequest("abc", `{}`))

	if handler.calls.Load() != 1 || rr.Code != http.StatusForbidden {
		t.Errorf("expected cached 403, got %d after %d calls", rr.Code, handler.calls.Load())
	}
}

func TestIdempotency_Panic_ReleasesKey(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	func() {
		defer func() { _ = recover() }()
		Idempotency(store)(panicking).ServeHTTP(httptest.NewRecorder(), transferRequest("abc", `{}`))
	}()

	handler := &countingHandler{}
	Idempotency(store)(handler).ServeHTTP(httptest.NewRecorder(), transferRequest("abc", `{}`))
	if handler.calls.Load() != 1 {
		t.Errorf("expected key to be free after panic, got %d calls", handler.calls.Load())
	}
}

func TestIdempotency_ConcurrentDuplicates_RunOnce(t *testing.T) {
	t.Parallel()
	handler := &countingHandler{delay: 50 * time.Millisecond}
	mw := Idempotency(newTestStore(t))(handler)

	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := httptest.NewRecorder()
			mw.ServeHTTP(rr, transferRequest("dup", `{"toUserId":3}`))
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	if handler.calls.Load() != 1 {
		t.Errorf("expected one execution, got %d", handler.calls.Load())
	}
	for i, c := range codes {
		if c != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, c)
		}
	}
}

func TestIdempotencyStore_Cleanup(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	store.entries["expired"] = &idempotencyEntry{expiresAt: time.Now().Add(-time.Minute)}
	store.entries["fresh"] = &idempotencyEntry{expiresAt: time.Now().Add(time.Minute)}
	store.entries["running"] = &idempotencyEntry{inFlight: true}

	store.cleanup()

	if _, ok := store.entries["expired"]; ok {
		t.Error("expected expired entry to be removed")
	}
	if len(store.entries) != 2 {
		t.Errorf("expected 2 remaining entries, got %d", len(store.entries))
	}
}
