package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/blog-api/internal/allocator"
	"github.com/UkralStul/blog-api/internal/domain"
	"github.com/UkralStul/blog-api/internal/storage"
	"github.com/UkralStul/blog-api/internal/storage/inmemory"
	"github.com/UkralStul/blog-api/internal/validation"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type failingStore struct {
	storage.PostStore
	createErr error
	findErr   error
	creates   int
}

func (f *failingStore) CreatePost(ctx context.Context, id int64, post domain.Post) (*domain.PostRecord, error) {
	f.creates++
	if f.createErr != nil {
		return nil, storage.Wrap("create post", f.createErr)
	}
	return f.PostStore.CreatePost(ctx, id, post)
}

func (f *failingStore) FindPostByID(ctx context.Context, id int64) (*domain.PostRecord, error) {
	if f.findErr != nil {
		return nil, storage.Wrap("find post", f.findErr)
	}
	return f.PostStore.FindPostByID(ctx, id)
}

func newTestServer(t *testing.T, store storage.PostStore) (http.Handler, *allocator.Allocator) {
	t.Helper()
	ids := allocator.New(zerolog.Nop())
	require.NoError(t, ids.Initialize(context.Background(), store))
	h := &Handler{
		Store:     store,
		IDs:       ids,
		Validator: validation.New(),
		Now:       func() time.Time { return fixedNow },
	}
	return NewRouter(h, zerolog.Nop(), 5*time.Second), ids
}

func do(t *testing.T, srv http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestCreatePost_Success(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.New())

	rec, out := do(t, srv, http.MethodPost, "/post", `{"title":"Hello World","content":"This is content","author":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Post created successfully", out["msg"])
	assert.Equal(t, float64(1), out["id"])

	post := out["post"].(map[string]any)
	assert.Equal(t, "Hello World", post["title"])
	assert.Equal(t, "This is content", post["content"])
	assert.Equal(t, "Alice", post["author"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), post["createdAt"])
	assert.NotContains(t, post, "id")
}

func TestCreateThenFetch_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.New())

	_, created := do(t, srv, http.MethodPost, "/post", `{"title":"Hello World","content":"This is content","author":"Alice"}`)
	id := int(created["id"].(float64))

	rec, out := do(t, srv, http.MethodGet, fmt.Sprintf("/post/%09d", id), "")
	require.Equal(t, http.StatusOK, rec.Code)

	stored := out["post"].(map[string]any)
	assert.Equal(t, float64(id), stored["id"])
	post := stored["post"].(map[string]any)
	assert.Equal(t, "Hello World", post["title"])
	assert.Equal(t, "This is content", post["content"])
	assert.Equal(t, "Alice", post["author"])
}

func TestCreatePost_ValidationErrorTouchesNothing(t *testing.T) {
	mem := inmemory.New()
	store := &failingStore{PostStore: mem}
	srv, ids := newTestServer(t, store)

	rec, out := do(t, srv, http.MethodPost, "/post", `{"title":"Hi","content":"short","author":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", out["message"])

	errs := out["errors"].([]any)
	require.Len(t, errs, 3)
	first := errs[0].(map[string]any)
	assert.Equal(t, "title", first["path"])
	assert.Equal(t, "Title must be at least 3 characters long.", first["message"])

	assert.Equal(t, 0, store.creates)
	next, _ := ids.Peek()
	assert.Equal(t, int64(1), next)
}

func TestCreatePost_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.New())

	rec, out := do(t, srv, http.MethodPost, "/post", `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", out["message"])
}

func TestCreatePost_TrailingDataRejected(t *testing.T) {
	store := &failingStore{PostStore: inmemory.New()}
	srv, _ := newTestServer(t, store)

	rec, out := do(t, srv, http.MethodPost, "/post", `{"title":"Hello","content":"This is content","author":"A"} trailing`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", out["message"])
	assert.Equal(t, 0, store.creates)
}

func TestCreatePost_StoreError(t *testing.T) {
	store := &failingStore{PostStore: inmemory.New(), createErr: errors.New("pq: connection to 10.1.1.1 refused")}
	srv, _ := newTestServer(t, store)

	rec, out := do(t, srv, http.MethodPost, "/post", `{"title":"Hello World","content":"This is content","author":"Alice"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DB error creating post", out["msg"])
	assert.Equal(t, "storage unavailable", out["error"])
	assert.NotContains(t, rec.Body.String(), "10.1.1.1")
}

func TestCreatePost_IDsSurviveStoreFailure(t *testing.T) {
	store := &failingStore{PostStore: inmemory.New(), createErr: errors.New("boom")}
	srv, ids := newTestServer(t, store)

	rec, _ := do(t, srv, http.MethodPost, "/post", `{"title":"Hello World","content":"This is content","author":"Alice"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	store.createErr = nil
	rec, out := do(t, srv, http.MethodPost, "/post", `{"title":"Hello World","content":"This is content","author":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	// зарезервированный неудачной записью id не переиспользуется
	assert.Equal(t, float64(2), out["id"])
	next, _ := ids.Peek()
	assert.Equal(t, int64(3), next)
}

func TestCreatePost_ConcurrentDistinctIDs(t *testing.T) {
	mem := inmemory.New()
	srv, _ := newTestServer(t, mem)

	const n = 64
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(`{"title":"Hello World","content":"This is content","author":"Alice"}`))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	assert.Equal(t, n, mem.Len())
	maxID, ok, err := mem.FindMaxPostID(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(n), maxID)
}

func TestCreatePost_WaitsForAllocator(t *testing.T) {
	ids := allocator.New(zerolog.Nop())
	h := &Handler{Store: inmemory.New(), IDs: ids, Validator: validation.New()}
	srv := NewRouter(h, zerolog.Nop(), 0)

	req := httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(`{"title":"Hello World","content":"This is content","author":"Alice"}`))
	ctx, cancel := context.WithTimeout(req.Context(), 20*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetPost_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.New())

	rec, out := do(t, srv, http.MethodGet, "/post/5", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", out["msg"])
}

func TestGetPost_InvalidID(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.New())

	for _, id := range []string{"12a", "1234567890", "-3"} {
		rec, out := do(t, srv, http.MethodGet, "/post/"+id, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "Invalid ID format", out["message"], id)
		errs := out["errors"].([]any)
		require.Len(t, errs, 1)
		assert.Equal(t, "id", errs[0].(map[string]any)["path"])
	}
}

func TestGetPost_StoreError(t *testing.T) {
	store := &failingStore{PostStore: inmemory.New(), findErr: context.DeadlineExceeded}
	srv, _ := newTestServer(t, store)

	rec, out := do(t, srv, http.MethodGet, "/post/1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DB error fetching post", out["msg"])
	assert.Equal(t, "storage timeout", out["error"])
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.New())
	rec, out := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, float64(1), out["nextId"])

	h := &Handler{Store: inmemory.New(), IDs: allocator.New(zerolog.Nop()), Validator: validation.New()}
	rec, _ = do(t, NewRouter(h, zerolog.Nop(), 0), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
