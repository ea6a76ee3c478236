package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daylog/internal/remote"
)

// fakeContents is a minimal stand-in for the contents API of one repo.
type fakeContents struct {
	mu    sync.Mutex
	files map[string]string // path -> content
	shas  map[string]string
	seq   int
}

func newFakeContents() *fakeContents {
	return &fakeContents{files: map[string]string{}, shas: map[string]string{}}
}

func (f *fakeContents) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		const prefix = "/repos/me/journal/contents/"
		if r.URL.Path == "/repos/me/journal" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"full_name":   "me/journal",
				"permissions": map[string]bool{"push": true},
			})
			return
		}
		if !strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, prefix)

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			content, ok := f.files[path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
				return
			}
			encoded := base64.StdEncoding.EncodeToString([]byte(content))
			// GitHub wraps base64 at 60 columns.
			if len(encoded) > 60 {
				encoded = encoded[:60] + "\n" + encoded[60:]
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type": "file", "sha": f.shas[path], "size": len(content),
				"encoding": "base64", "content": encoded,
			})
		case http.MethodPut:
			var req writeRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			cur, exists := f.shas[path]
			if exists && req.SHA == "" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				json.NewEncoder(w).Encode(map[string]string{"message": `"sha" wasn't supplied.`})
				return
			}
			if req.SHA != cur {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"message": "does not match"})
				return
			}
			data, err := base64.StdEncoding.DecodeString(req.Content)
			assert.NoError(t, err)
			f.seq++
			sha := strings.Repeat("a", 39) + string(rune('0'+f.seq%10))
			f.files[path] = string(data)
			f.shas[path] = sha
			json.NewEncoder(w).Encode(map[string]interface{}{"content": map[string]string{"sha": sha}})
		case http.MethodDelete:
			var req writeRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if _, ok := f.files[path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if req.SHA != f.shas[path] {
				w.WriteHeader(http.StatusConflict)
				return
			}
			delete(f.files, path)
			delete(f.shas, path)
			json.NewEncoder(w).Encode(map[string]interface{}{})
		}
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("test-token", "me", "journal", WithBaseURL(srv.URL), WithRetry(2, time.Millisecond))
}

func TestReadWriteDeleteRoundTrip(t *testing.T) {
	fake := newFakeContents()
	c := newTestClient(t, fake.handler(t))
	ctx := context.Background()

	doc, err := c.Read(ctx, "data/2026/02.json")
	require.NoError(t, err)
	assert.Nil(t, doc)

	content := []byte(`{"month": "2026-02", "entries": {"2026-02-21": {"work": "long enough to wrap the base64 payload"}}}`)
	rev, err := c.Write(ctx, "data/2026/02.json", content, "", "Update 2026-02 entries")
	require.NoError(t, err)
	require.NotEmpty(t, rev)

	doc, err = c.Read(ctx, "data/2026/02.json")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, string(content), string(doc.Content))
	assert.Equal(t, rev, doc.Revision)

	// Creating over an existing file and writing a stale sha both conflict.
	_, err = c.Write(ctx, "data/2026/02.json", content, "", "again")
	assert.ErrorIs(t, err, remote.ErrConflict)
	_, err = c.Write(ctx, "data/2026/02.json", content, "stale", "again")
	assert.ErrorIs(t, err, remote.ErrConflict)

	require.NoError(t, c.Delete(ctx, "data/2026/02.json", rev, "Delete"))
	require.NoError(t, c.Delete(ctx, "data/2026/02.json", rev, "Delete"))
	doc, err = c.Read(ctx, "data/2026/02.json")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestValidateAccess(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		headers map[string]string
		wantErr error
	}{
		{name: "push allowed", status: 200, body: `{"permissions":{"push":true}}`},
		{name: "read only", status: 200, body: `{"permissions":{"push":false}}`, wantErr: remote.ErrPermission},
		{name: "missing repo", status: 404, body: `{"message":"Not Found"}`, wantErr: remote.ErrNotFound},
		{name: "bad token", status: 401, body: `{"message":"Bad credentials"}`, wantErr: remote.ErrAuth},
		{name: "forbidden", status: 403, body: `{"message":"Resource not accessible"}`, wantErr: remote.ErrPermission},
		{name: "rate limited", status: 403, body: `{"message":"API rate limit exceeded"}`,
			headers: map[string]string{"X-RateLimit-Remaining": "0"}, wantErr: remote.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			err := c.ValidateAccess(context.Background())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{401, remote.ErrAuth},
		{403, remote.ErrPermission},
		{409, remote.ErrConflict},
		{422, remote.ErrConflict},
		{429, remote.ErrTransient},
		{500, remote.ErrTransient},
		{502, remote.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := c.Write(context.Background(), "data/2026/02.json", []byte("{}"), "", "msg")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var se *remote.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Status)
		})
	}
}

func TestTransientFailuresAreRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	doc, err := c.Read(context.Background(), "data/config.json")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetriesGiveUp(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Read(context.Background(), "data/config.json")
	assert.True(t, remote.IsRetryable(err))
	// One attempt plus two retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFatalErrorsAreNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Read(context.Background(), "data/config.json")
	assert.True(t, remote.IsFatal(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBranchIsSent(t *testing.T) {
	var gotRef, gotBranch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gotRef = r.URL.Query().Get("ref")
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			var req writeRequest
			json.NewDecoder(r.Body).Decode(&req)
			gotBranch = req.Branch
			w.Write([]byte(`{"content":{"sha":"abc"}}`))
		}
	}))
	defer srv.Close()

	c := New("test-token", "me", "journal", WithBaseURL(srv.URL), WithBranch("journal-data"))
	_, err := c.Read(context.Background(), "data/config.json")
	require.NoError(t, err)
	_, err = c.Write(context.Background(), "data/config.json", []byte("{}"), "", "Initialize data structure")
	require.NoError(t, err)

	assert.Equal(t, "journal-data", gotRef)
	assert.Equal(t, "journal-data", gotBranch)
}

func TestRemoteRecordsOverGitHub(t *testing.T) {
	fake := newFakeContents()
	c := newTestClient(t, fake.handler(t))
	r := remote.NewRecords(c)
	ctx := context.Background()

	require.NoError(t, r.EnsureStructure(ctx))
	assert.Contains(t, fake.files, remote.ConfigPath)

	m, err := r.FetchMonth(ctx, "2026-02")
	require.NoError(t, err)
	require.NoError(t, r.PushMonth(ctx, m))
	assert.Contains(t, fake.files, "data/2026/02.json")
}
