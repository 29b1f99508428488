package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helioframe/internal/source"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := source.New("", "agent", 0); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestFetchImageSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sourceId"); got != "13" {
			t.Fatalf("unexpected sourceId: %q", got)
		}
		if got := r.URL.Query().Get("date"); got != "2024-03-01T13:45:09Z" {
			t.Fatalf("unexpected date: %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "helioframe/test" {
			t.Fatalf("unexpected user agent: %q", got)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="2024_03_01__13_45_00__SDO_AIA.jp2"`)
		_, _ = w.Write([]byte{0x00, 0x01, 0x02})
	}))
	t.Cleanup(server.Close)

	client, err := source.New(server.URL, "helioframe/test", 5*time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	nominal := time.Date(2024, 3, 1, 13, 45, 9, 500_000_000, time.UTC)
	payload, err := client.FetchImage(context.Background(), nominal, 13)
	if err != nil {
		t.Fatalf("FetchImage returned error: %v", err)
	}
	if len(payload.Body) != 3 {
		t.Fatalf("unexpected body: %v", payload.Body)
	}
	if payload.Filename != "2024_03_01__13_45_00__SDO_AIA.jp2" {
		t.Fatalf("unexpected filename: %q", payload.Filename)
	}
}

func TestFetchImageNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := source.New(server.URL, "", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchImage(context.Background(), time.Now(), 9); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchImageEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client, err := source.New(server.URL, "", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchImage(context.Background(), time.Now(), 9); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestFetchImageMissingDisposition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	t.Cleanup(server.Close)

	client, err := source.New(server.URL, "", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	payload, err := client.FetchImage(context.Background(), time.Now(), 9)
	if err != nil {
		t.Fatalf("FetchImage returned error: %v", err)
	}
	if payload.Filename != "" {
		t.Fatalf("expected empty filename, got %q", payload.Filename)
	}
}
