package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/models"
	"mybooks/internal/routes"
	"mybooks/internal/storage/stubs"
)

const fixture = `[
	{"id":1,"title":"A","author":"X","isFavorite":true},
	{"id":"b","title":"B","status":"Leído"},
	{"id":3,"title":"C","status":"Leyendo"}
]`

type testEnv struct {
	server *Server
	store  *books.Store
	db     *stubs.MockDB
}

func newTestEnv(t *testing.T, variant routes.Variant, opts ...Option) *testEnv {
	t.Helper()
	db := stubs.NewMockDB().Seed("mybooks", fixture)
	clock := func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	store := books.New(context.Background(), db, zap.NewNop(), books.WithClock(clock), books.WithLocation(time.UTC))
	return &testEnv{
		server: New(store, variant, zap.NewNop(), opts...),
		store:  store,
		db:     db,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)
	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRoutes(t *testing.T) {
	env := newTestEnv(t, routes.VariantFlags)
	rec := env.do(http.MethodGet, "/api/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Variant string         `json:"variant"`
		Routes  []routes.Route `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "flags", resp.Variant)
	assert.Equal(t, routes.Table(routes.VariantFlags), resp.Routes)
}

func TestPages(t *testing.T) {
	testCases := []struct {
		name    string
		variant routes.Variant
		path    string
		code    int
		page    string
		ids     []string
	}{
		{"home shows current reads", routes.VariantStatus, "/api/pages/", http.StatusOK, "home", []string{"3"}},
		{"library", routes.VariantStatus, "/api/pages/library", http.StatusOK, "library", []string{"1", "b", "3"}},
		{"bookshelf", routes.VariantStatus, "/api/pages/bookshelf", http.StatusOK, "bookshelf", []string{"b"}},
		{"wishlist", routes.VariantFlags, "/api/pages/wishlist", http.StatusOK, "wishlist", []string{"1"}},
		{"bookstores", routes.VariantFlags, "/api/pages/bookstores", http.StatusOK, "bookstores", []string{}},
		{"bookstores missing on status", routes.VariantStatus, "/api/pages/bookstores", http.StatusNotFound, "", nil},
		{"trailing slash", routes.VariantStatus, "/api/pages/library/", http.StatusNotFound, "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.variant)
			rec := env.do(http.MethodGet, tc.path, "")
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
			if tc.code != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"error"`)
				return
			}

			var resp struct {
				Page  string            `json:"page"`
				Books []json.RawMessage `json:"books"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.page, resp.Page)

			ids := []string{}
			for _, raw := range resp.Books {
				var record struct {
					ID models.ID `json:"id"`
				}
				require.NoError(t, json.Unmarshal(raw, &record))
				ids = append(ids, record.ID.String())
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestStatsPage(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)
	rec := env.do(http.MethodGet, "/api/pages/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"page":"stats","stats":{"total":3,"unread":1,"reading":1,"finished":1,"custom":0,"favorites":1}}`, rec.Body.String())
}

func TestListAndGetBooks(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodGet, "/api/books", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 3)

	rec = env.do(http.MethodGet, "/api/books/b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"b","title":"B","status":"Leído","isReading":false,"isFavorite":false}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/books/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":1`)

	rec = env.do(http.MethodGet, "/api/books/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Book not found"}`, rec.Body.String())
}

func TestAddBook(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus, WithIDGenerator(func() models.ID { return models.StringID("generated") }))

	rec := env.do(http.MethodPost, "/api/books", `{"title":"New","author":"Y","year":2020}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":"generated","title":"New","author":"Y","year":2020,"isReading":false,"isFavorite":false}`, rec.Body.String())
	assert.Equal(t, 4, env.store.Len())

	rec = env.do(http.MethodPost, "/api/books", `{"id":10,"title":"Ten"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	_, ok := env.store.Book(models.NumericID(10))
	assert.True(t, ok)

	rec = env.do(http.MethodPost, "/api/books", `{"id":10,"title":"Again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/books", `{"id":11,"title":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/books", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/books", `null`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 5, env.store.Len())
}

func TestAddBook_DefaultIDIsUUID(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodPost, "/api/books", `{"title":"New"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.ID, 36)
}

func TestUpdateBook(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodPatch, "/api/books/1", `{"title":"A2","cover":"a.png"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":1,"title":"A2","author":"X","cover":"a.png","isReading":false,"isFavorite":true}`, rec.Body.String())

	rec = env.do(http.MethodPatch, "/api/books/1", `{"cover":null,"status":"Prestado"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	book, _ := env.store.Book(models.NumericID(1))
	assert.Nil(t, book.Fields)
	assert.Equal(t, models.Custom("Prestado"), book.State)

	rec = env.do(http.MethodPatch, "/api/books/1", `{"isReading":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	book, _ = env.store.Book(models.NumericID(1))
	assert.True(t, book.State.IsReading())

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPatch, "/api/books/99", `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, "/api/books/1", `{"id":2}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, "/api/books/1", `{"isFavorite":"yes"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, "/api/books/1", `{bad`).Code)
}

func TestRemoveBook(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodDelete, "/api/books/b", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, env.store.Len())

	rec = env.do(http.MethodDelete, "/api/books/b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 2, env.store.Len())
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodPut, "/api/books/1/status", `{"status":"Leído"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Leído"`)

	rec = env.do(http.MethodPut, "/api/books/1/status", `{"status":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	book, _ := env.store.Book(models.NumericID(1))
	assert.True(t, book.State.IsUnread())

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/books/1/status", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/api/books/9/status", `{"status":"Leído"}`).Code)
}

func TestMarkAsReading(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodPost, "/api/books/1/reading", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"comment":"Comenzado el 17-10-2026"`)
	assert.Contains(t, rec.Body.String(), `"status":"Leyendo"`)

	raw, _, _ := env.db.Get(context.Background(), "mybooks")
	assert.Contains(t, raw, "Comenzado el 17-10-2026")

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/books/9/reading", "").Code)
}

func TestToggles(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)

	rec := env.do(http.MethodPost, "/api/books/3/toggle-reading", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isReading":false`)

	rec = env.do(http.MethodPost, "/api/books/b/toggle-favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isFavorite":true`)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/books/9/toggle-reading", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/books/9/toggle-favorite", "").Code)
}

func TestDigitStringIDIsAddressable(t *testing.T) {
	db := stubs.NewMockDB().Seed("mybooks", `[{"id":"123","title":"Legacy"}]`)
	store := books.New(context.Background(), db, zap.NewNop())
	env := &testEnv{server: New(store, routes.VariantFlags, zap.NewNop()), store: store, db: db}

	rec := env.do(http.MethodGet, "/api/books/123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"123"`)

	rec = env.do(http.MethodPost, "/api/books/123/toggle-favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	book, _ := store.Book(models.StringID("123"))
	assert.True(t, book.Favorite)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/books/123", "").Code)
	assert.Equal(t, 0, store.Len())
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, routes.VariantStatus)
	rec := env.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}
