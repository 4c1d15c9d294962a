package gamestatus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testPoller(url string) *Poller {
	return NewPoller(Config{
		URL: url,
		Realms: map[string]string{
			"The Elder Realm (NA)": "PC-NA",
			"The Elder Realm (EU)": "PC-EU",
		},
	})
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request sent without User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"zos_platform_response": {
				"response": {
					"The Elder Realm (NA)": "up",
					"The Elder Realm (EU)": "down",
					"Unrelated Realm": "up"
				}
			}
		}`))
	}))
	defer srv.Close()

	got, err := testPoller(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got["PC-NA"] != "UP" {
		t.Errorf("PC-NA = %q, want UP", got["PC-NA"])
	}
	if got["PC-EU"] != "DOWN" {
		t.Errorf("PC-EU = %q, want DOWN", got["PC-EU"])
	}
	if len(got) != 2 {
		t.Errorf("len(result) = %d, want only configured realms", len(got))
	}
}

func TestFetch_MissingRealmIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"zos_platform_response": {"response": {"The Elder Realm (NA)": "UP"}}}`))
	}))
	defer srv.Close()

	got, err := testPoller(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got["PC-EU"] != "UNKNOWN" {
		t.Errorf("PC-EU = %q, want UNKNOWN", got["PC-EU"])
	}
}

func TestFetch_StructureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"different_envelope": true}`))
	}))
	defer srv.Close()

	_, err := testPoller(srv.URL).Fetch(context.Background())
	if !errors.Is(err, ErrStructure) {
		t.Errorf("Fetch() error = %v, want ErrStructure", err)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := testPoller(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("Fetch() on HTTP 503 succeeded, want error")
	}
}

func TestFetch_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	if _, err := testPoller(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("Fetch() on invalid JSON succeeded, want error")
	}
}
