package draftstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePathstore is an in-memory pathstore KV server.
type fakePathstore struct {
	mu       sync.Mutex
	nodes    map[string]json.RawMessage
	failures int
	calls    int
	auth     string
}

func newFakePathstore() *fakePathstore {
	return &fakePathstore{nodes: make(map[string]json.RawMessage)}
}

func (f *fakePathstore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.auth = r.Header.Get("Authorization")
	if f.failures > 0 {
		f.failures--
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nodes[key] = body.Value
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case http.MethodDelete:
		for k := range f.nodes {
			if strings.HasPrefix(k, key+"/") {
				delete(f.nodes, k)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestPathstore(t *testing.T, fake *fakePathstore) *PathstoreStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s := NewPathstoreStore(srv.URL+"/", "secret")
	s.backoff = func(int) time.Duration { return time.Millisecond }
	t.Cleanup(s.Close)
	return s
}

func TestPathstoreStore_RoundTrip(t *testing.T) {
	fake := newFakePathstore()
	s := newTestPathstore(t, fake)
	ctx := context.Background()
	key := Key{UserID: "u1", DraftID: "d-1", Kind: KindMaturity}

	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff}
	require.NoError(t, s.Put(ctx, key, File{Name: "maturity.xlsx", Data: payload}))
	assert.Equal(t, "Bearer secret", fake.auth)
	assert.Contains(t, fake.nodes, "bondgen/drafts/u1/d-1/maturity")

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "maturity.xlsx", got.Name)
	assert.Equal(t, payload, got.Data)

	require.NoError(t, s.Delete(ctx, "u1", "d-1"))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathstoreStore_RetriesTransientFailures(t *testing.T) {
	fake := newFakePathstore()
	fake.failures = 2
	s := newTestPathstore(t, fake)

	err := s.Put(context.Background(), Key{UserID: "u1", DraftID: "d1", Kind: KindCusip}, File{Name: "c.csv", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestPathstoreStore_GivesUpAfterMaxAttempts(t *testing.T) {
	fake := newFakePathstore()
	fake.failures = 10
	s := newTestPathstore(t, fake)

	_, err := s.Get(context.Background(), Key{UserID: "u1", DraftID: "d1", Kind: KindCusip})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, maxAttempts, fake.calls)
}

func TestPathstoreStore_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.Copy(io.Discard, r.Body)
		http.Error(w, "bad key", http.StatusBadRequest)
	}))
	defer srv.Close()
	s := NewPathstoreStore(srv.URL, "k")

	err := s.Put(context.Background(), Key{UserID: "u", DraftID: "d", Kind: KindTemplate}, File{Data: []byte("x")})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, 1, calls)
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		key Key
		ok  bool
	}{
		{Key{UserID: "u1", DraftID: "d1", Kind: KindArchive}, true},
		{Key{UserID: "../etc", DraftID: "d1", Kind: KindArchive}, false},
		{Key{UserID: "u1", DraftID: "", Kind: KindArchive}, false},
		{Key{UserID: "u1", DraftID: "d1", Kind: "pdf"}, false},
	}
	for _, tt := range tests {
		err := tt.key.Validate()
		assert.Equal(t, tt.ok, err == nil, "key %+v", tt.key)
	}
	assert.Equal(t, "drafts/u1/d1/archive", Key{UserID: "u1", DraftID: "d1", Kind: KindArchive}.Path())
}

func TestMemory_DeleteScopedToDraft(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, Key{"u", "d1", KindTemplate}, File{Data: []byte("a")}))
	require.NoError(t, m.Put(ctx, Key{"u", "d10", KindTemplate}, File{Data: []byte("b")}))

	require.NoError(t, m.Delete(ctx, "u", "d1"))
	_, err := m.Get(ctx, Key{"u", "d1", KindTemplate})
	assert.ErrorIs(t, err, ErrNotFound)
	f, err := m.Get(ctx, Key{"u", "d10", KindTemplate})
	require.NoError(t, err)
	assert.Equal(t, "b", string(f.Data))
}

func TestRetryDelay(t *testing.T) {
	for attempt := range 10 {
		d := retryDelay(attempt)
		assert.GreaterOrEqual(t, d, min(250*time.Millisecond<<attempt, 4*time.Second))
		assert.LessOrEqual(t, d, 6*time.Second)
	}
}
