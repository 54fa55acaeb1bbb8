package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"
)

// IdempotencyKeyHeader carries the client-chosen key for a mutating request
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyStore remembers responses to requests carrying an
// Idempotency-Key so a retried transfer is answered from the cache instead of
// moving a second GoodJob.
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	inFlight  bool
	done      chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep results (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup == 0 {
		cfg.Cleanup = time.Hour
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cfg.Cleanup)

	return store
}

// Stop stops the cleanup goroutine
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.entries {
		if !entry.inFlight && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// claim returns a completed entry to replay, or registers key as in flight
// and returns nil. Concurrent duplicates wait for the first one to finish.
func (s *IdempotencyStore) claim(key string) (replay *idempotencyEntry, owned *idempotencyEntry) {
	for {
		s.mu.Lock()
		entry, exists := s.entries[key]
		switch {
		case exists && entry.inFlight:
			s.mu.Unlock()
			<-entry.done
			continue
		case exists && entry.expiresAt.After(time.Now()):
			s.mu.Unlock()
			return entry, nil
		}

		entry = &idempotencyEntry{inFlight: true, done: make(chan struct{})}
		s.entries[key] = entry
		s.mu.Unlock()
		return nil, entry
	}
}

// complete stores the response for key. Server errors and panics (nil rw)
// are not remembered so the client can retry them.
func (s *IdempotencyStore) complete(key string, entry *idempotencyEntry, rw *idempotencyResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rw == nil || rw.status >= http.StatusInternalServerError {
		delete(s.entries, key)
	} else {
		entry.status = rw.status
		entry.headers = rw.Header().Clone()
		entry.body = rw.body.Bytes()
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	entry.inFlight = false
	close(entry.done)
}

// generateKey creates a unique key from the caller, idempotency key, and request fingerprint
func generateKey(client, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{client, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func replayResponse(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range entry.headers {
		w.Header()[k] = append([]string(nil), v...)
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}

// Idempotency returns middleware that handles idempotency keys for POST/PATCH requests
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get(IdempotencyKeyHeader)
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := generateKey(clientKey(r), idempotencyKey, r.Method, r.URL.Path, body)

			replay, entry := store.claim(key)
			if replay != nil {
				replayResponse(w, replay)
				return
			}

			finished := false
			defer func() {
				if !finished {
					store.complete(key, entry, nil)
				}
			}()

			irw := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(irw, r)

			store.complete(key, entry, irw)
			finished = true
		})
	}
}
