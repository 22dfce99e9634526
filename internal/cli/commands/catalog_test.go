package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func catalogServer(t *testing.T, entries []map[string]interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/catalog" || r.Method != "GET" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(entries)
	}))
}

func TestRunCatalog(t *testing.T) {
	srv := catalogServer(t, []map[string]interface{}{
		{"id": "01A", "title": "Lesson 1", "media_type": "video", "is_free": true},
		{"id": "01B", "title": "Grammar Notes", "media_type": "pdf", "is_free": false},
	})
	defer srv.Close()

	setupTestEnvironment(t, srv.URL)

	if err := runCatalog(); err != nil {
		t.Fatalf("runCatalog failed: %v", err)
	}
}

func TestRunCatalogEmpty(t *testing.T) {
	srv := catalogServer(t, []map[string]interface{}{})
	defer srv.Close()

	setupTestEnvironment(t, srv.URL)

	if err := runCatalog(); err != nil {
		t.Fatalf("runCatalog failed on empty catalog: %v", err)
	}
}

func TestRunCatalogNoServerConfigured(t *testing.T) {
	// Point the config at nothing by using a directory with no englishpod.json
	// and an empty global default.
	setupTestEnvironment(t, "")

	if err := runCatalog(); err == nil {
		t.Fatal("expected error when no server is configured")
	}
}
