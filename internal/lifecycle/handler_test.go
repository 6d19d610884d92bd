package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"qalilab/pkg/tenants"
)

func newRouter(store tenants.Store) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, store, zap.NewNop().Sugar())
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInstallStoresTenant(t *testing.T) {
	store := tenants.NewMemoryStore(zap.NewNop().Sugar())
	rec := post(t, newRouter(store), "/installed",
		`{"clientKey":"tenant-a","baseUrl":"https://a.atlassian.net","sharedSecret":"s3cret","publicKey":"pk"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	inst, err := store.Get(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("tenant not stored: %v", err)
	}
	if inst.SharedSecret != "s3cret" || inst.BaseURL != "https://a.atlassian.net" {
		t.Errorf("installation = %+v", inst)
	}
	if inst.InstalledAt.IsZero() {
		t.Error("InstalledAt not set")
	}
}

func TestReinstallRotatesSecret(t *testing.T) {
	store := tenants.NewMemoryStore(zap.NewNop().Sugar())
	h := newRouter(store)
	post(t, h, "/installed", `{"clientKey":"tenant-a","baseUrl":"https://a.atlassian.net","sharedSecret":"first"}`)
	post(t, h, "/installed", `{"clientKey":"tenant-a","baseUrl":"https://a.atlassian.net","sharedSecret":"second"}`)
	inst, err := store.Get(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inst.SharedSecret != "second" {
		t.Errorf("secret = %q, want the rotated value", inst.SharedSecret)
	}
}

func TestInstallMissingSecretAcksWithoutStoring(t *testing.T) {
	store := tenants.NewMemoryStore(zap.NewNop().Sugar())
	rec := post(t, newRouter(store), "/installed", `{"clientKey":"tenant-a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on incomplete payload", rec.Code)
	}
	if _, err := store.Get(context.Background(), "tenant-a"); !errors.Is(err, tenants.ErrNotInstalled) {
		t.Error("incomplete payload must not create an installation")
	}
}

func TestInstallMalformedBodyStillAcks(t *testing.T) {
	rec := post(t, newRouter(tenants.NewMemoryStore(zap.NewNop().Sugar())), "/installed", "{not json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUninstallRemovesTenant(t *testing.T) {
	store := tenants.NewMemoryStore(zap.NewNop().Sugar())
	h := newRouter(store)
	post(t, h, "/installed", `{"clientKey":"tenant-a","baseUrl":"https://a.atlassian.net","sharedSecret":"s"}`)
	rec := post(t, h, "/uninstalled", `{"clientKey":"tenant-a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, err := store.Get(context.Background(), "tenant-a"); !errors.Is(err, tenants.ErrNotInstalled) {
		t.Error("tenant still present after uninstall")
	}
}

func TestUninstallUnknownTenantAcks(t *testing.T) {
	rec := post(t, newRouter(tenants.NewMemoryStore(zap.NewNop().Sugar())), "/uninstalled", `{"clientKey":"never-seen"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
