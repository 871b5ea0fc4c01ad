package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

const pageOne = `{
  "status": "OK",
  "next_page_token": "page-2",
  "results": [
    {
      "place_id": "store-1",
      "name": "Sneaker Hub",
      "vicinity": "Hamra Street, Beirut",
      "geometry": {"location": {"lat": 33.8950, "lng": 35.4800}},
      "rating": 4.4,
      "user_ratings_total": 210,
      "opening_hours": {"open_now": true}
    }
  ]
}`

const pageTwo = `{
  "status": "OK",
  "results": [
    {
      "place_id": "store-2",
      "name": "City Sports",
      "vicinity": "Verdun, Beirut",
      "geometry": {"location": {"lat": 33.8800, "lng": 35.4900}},
      "rating": 3.9,
      "user_ratings_total": 58
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	return newTestClientCfg(t, handler, Config{})
}

func newTestClientCfg(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	if cfg.RequestsPerSec == 0 {
		cfg.RequestsPerSec = 1000
	}
	if cfg.PageDelay == 0 {
		cfg.PageDelay = time.Millisecond
	}

	c, err := NewClient(&cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNearby_Paginates(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch calls.Add(1) {
		case 1:
			if r.URL.Query().Get("keyword") != "shoe" {
				t.Errorf("keyword = %q", r.URL.Query().Get("keyword"))
			}
			_, _ = w.Write([]byte(pageOne))
		default:
			if r.URL.Query().Get("pagetoken") != "page-2" {
				t.Errorf("pagetoken = %q", r.URL.Query().Get("pagetoken"))
			}
			_, _ = w.Write([]byte(pageTwo))
		}
	})

	stores, err := c.Nearby(context.Background(), domain.Location{Lat: 33.8886, Lng: 35.4955}, 10, "shoe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stores))
	}
	if stores[0].ID != "store-1" || stores[0].Name != "Sneaker Hub" {
		t.Errorf("store 0 = %+v", stores[0])
	}
	if !stores[0].CurrentlyOpen {
		t.Error("store 0 should be open")
	}
	// ratings arrive as float32; 3.9 must survive the widening exactly
	if stores[0].Rating != 4.4 || stores[1].Rating != 3.9 {
		t.Errorf("ratings = %v, %v", stores[0].Rating, stores[1].Rating)
	}
}

func TestNearby_StopsAfterOneExtraPage(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		// a token on every page must not trigger a third fetch
		_, _ = w.Write([]byte(pageOne))
	})

	stores, err := c.Nearby(context.Background(), domain.Location{Lat: 33.8886, Lng: 35.4955}, 10, "shoe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
	if len(stores) != 2 {
		t.Errorf("expected 2 stores, got %d", len(stores))
	}
}

func TestNearby_SkipsExtraPageWhenEnough(t *testing.T) {
	var calls atomic.Int32
	c := newTestClientCfg(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pageOne))
	}, Config{MaxResults: 1})

	stores, err := c.Nearby(context.Background(), domain.Location{Lat: 33.8886, Lng: 35.4955}, 10, "shoe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("first page already met the cap, got %d requests", calls.Load())
	}
	if len(stores) != 1 {
		t.Errorf("expected 1 store, got %d", len(stores))
	}
}

func TestNearby_Timeout(t *testing.T) {
	c := newTestClientCfg(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pageOne))
	}, Config{Timeout: 20 * time.Millisecond})

	_, err := c.Nearby(context.Background(), domain.Location{Lat: 33.8886, Lng: 35.4955}, 10, "shoe")
	if err == nil {
		t.Fatal("expected deadline error")
	}
}

func TestNearby_PartialResultOnLaterPageFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(pageOne))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	stores, err := c.Nearby(context.Background(), domain.Location{Lat: 33.8886, Lng: 35.4955}, 10, "shoe")
	if err != nil {
		t.Fatalf("partial result should not error, got %v", err)
	}
	if len(stores) != 1 {
		t.Fatalf("expected 1 store from first page, got %d", len(stores))
	}
}

func TestNearby_FirstPageFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Nearby(context.Background(), domain.Location{Lat: 33.8886, Lng: 35.4955}, 10, "shoe")
	if err == nil {
		t.Fatal("expected error")
	}
}
