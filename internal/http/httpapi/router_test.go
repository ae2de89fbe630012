package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"storyboard/internal/db"
	"storyboard/internal/http/handlers"
	"storyboard/internal/infra"
	"storyboard/internal/storage"
)

// emptyDB serves the status route: every job lookup misses.
type emptyDB struct{}

func (emptyDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (emptyDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (emptyDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return missRow{}
}

type missRow struct{}

func (missRow) Scan(...any) error { return pgx.ErrNoRows }

func newTestRouter(t *testing.T) (http.Handler, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cfg := &infra.Config{CORSAllowedOrigins: []string{"*"}}
	app := handlers.NewApp(db.New(emptyDB{}), store, cfg, zerolog.New(io.Discard))
	return NewRouter(app), store
}

func TestRouterHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestRouterStampsRequestMetadata(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://frontend.test")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header missing")
	}
	if rr.Header().Get("X-Process-Time") == "" {
		t.Fatal("X-Process-Time header missing")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://frontend.test" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouterStatusRouteExtractsJobID(t *testing.T) {
	router, _ := newTestRouter(t)

	// A well-formed id that no job carries resolves as pending.
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sketch/status/"+uuid.NewString(), nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "PENDING") {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sketch/status/not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: status = %d, want 400", rr.Code)
	}
}

func TestRouterServesStoredArtifacts(t *testing.T) {
	router, store := newTestRouter(t)

	payload := []byte("png bytes")
	if err := os.MkdirAll(filepath.Join(store.BasePath(), "img1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.BasePath(), "img1", "v1.png"), payload, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/img1/v1.png", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != string(payload) {
		t.Fatalf("served bytes do not match the stored artifact")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/img1/v2.png", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing artifact: status = %d, want 404", rr.Code)
	}
}
