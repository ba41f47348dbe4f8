package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/moneyboard/moneyboard/internal/config"
	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/finance"
	"github.com/moneyboard/moneyboard/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T, repo snapshot.Repository) (http.Handler, *Dependencies) {
	stub := backend.NewClientStub()
	stub.SetAssets(
		finance.Asset{Id: 1, Name: "Euro", Currency: "EUR", Kind: "currency"},
		finance.Asset{Id: 2, Name: "Bitcoin", Symbol: "BTC", Kind: "crypto"},
	)
	cfg := config.Defaults()
	cfg.Picker.Debounce = 10 * time.Millisecond

	deps := wireDependencies(stub, repo, cfg)
	r := mux.NewRouter()
	SetupMiddleware(r, deps)
	RegisterRoutes(r, deps)
	return r, deps
}

func request(method, target, owner, token string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if owner != "" {
		req.Header.Set("X-User-Id", owner)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("should reject api calls without a user", func(t *testing.T) {
		h, deps := setupApp(t, nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, request(http.MethodGet, "/api/picker/assets/options", "", ""))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, deps.Sessions.Len())
	})

	t.Run("should let anonymous calls outside the api through", func(t *testing.T) {
		h, _ := setupApp(t, nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, request(http.MethodGet, "/health", "", ""))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should open one session per user and refresh its token", func(t *testing.T) {
		// given
		h, deps := setupApp(t, nil)

		// when
		h.ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/api/picker/assets/status", "alice", "t1"))
		h.ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/api/picker/assets/status", "alice", "t2"))
		h.ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/api/picker/assets/status", "alice", ""))

		// then
		assert.Equal(t, 1, deps.Sessions.Len())
		s, ok := deps.Sessions.Get("alice")
		require.True(t, ok)
		assert.Equal(t, "t2", s.Token())
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			assert.Equal(t, tt.want, bearerToken(req))
		})
	}
}

func TestRoutes_OptionsArePersisted(t *testing.T) {
	// given
	repo := snapshot.NewRepositoryStub()
	h, deps := setupApp(t, repo)
	require.NotNil(t, deps.SnapshotPersister)

	// when
	w := httptest.NewRecorder()
	h.ServeHTTP(w, request(http.MethodGet, "/api/picker/assets/options", "alice", "t"))

	// then
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, deps.SnapshotPersister.Flush(context.Background()))
	assert.Len(t, repo.Records("alice", string(finance.KindAssets)), 2)

	// when the cache is forgotten
	w = httptest.NewRecorder()
	h.ServeHTTP(w, request(http.MethodDelete, "/api/cache", "alice", "t"))

	// then
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.Records("alice", string(finance.KindAssets)))
}

func TestRoutes_WarmStart(t *testing.T) {
	// given a snapshot left by a previous process
	repo := snapshot.NewRepositoryStub()
	first, deps := setupApp(t, repo)
	first.ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/api/picker/assets/options", "alice", "t"))
	require.NoError(t, deps.SnapshotPersister.Flush(context.Background()))

	// when a new process opens the session
	_, restarted := setupApp(t, repo)
	s, err := restarted.Sessions.Open(context.Background(), "alice", "t")

	// then
	require.NoError(t, err)
	assert.Equal(t, 2, s.Registry.Assets.Len())
}

func TestRoutes_FormLifecycle(t *testing.T) {
	h, deps := setupApp(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, request(http.MethodPost, "/api/forms/transaction", "alice", "t"))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, deps.FormService.Len())
}

func TestBuildDependencies_WithoutDatabase(t *testing.T) {
	deps := BuildDependencies(nil, config.Defaults())

	assert.Nil(t, deps.SnapshotRepo)
	assert.Nil(t, deps.SnapshotPersister)
	assert.NotNil(t, deps.SnapshotHandler)
	assert.NotNil(t, deps.FormHandler)
}
