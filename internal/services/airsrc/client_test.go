package airsrc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"AirPulse/pkg/cache"
)

func measurementsServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		if r.URL.Path != "/v3/measurements" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("parameter"); got != "pm25" {
			t.Errorf("parameter = %q, want pm25", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
            {"station_id":"ha-noi","parameter":"pm25","datetime":"2024-05-01 00:00:00","value":41.5},
            {"station_id":"ha-noi","parameter":"pm25","datetime":"2024-05-01 01:00:00","value":null},
            {"station_id":"ha-noi","parameter":"pm25","datetime":"2024-05-01 02:00:00","value":"38.2"},
            {"station_id":"ha-noi","parameter":"pm25","datetime":"2024-05-01 03:00:00","value":""}
        ]}`))
	}))
}

func TestClientFetch(t *testing.T) {
	var hits int64
	srv := measurementsServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	readings, err := c.Fetch(context.Background(), "ha-noi", "pm25", from, from.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(readings) != 4 {
		t.Fatalf("got %d readings, want 4", len(readings))
	}
	if readings[0].Value == nil || *readings[0].Value != 41.5 {
		t.Fatalf("unexpected first value: %+v", readings[0])
	}
	if readings[1].Value != nil {
		t.Fatalf("expected nil value for missing reading")
	}
	if readings[2].Value == nil || *readings[2].Value != 38.2 {
		t.Fatalf("string-encoded value not parsed: %+v", readings[2])
	}
	if readings[3].Value != nil {
		t.Fatalf("expected nil value for empty-string reading")
	}
}

func TestClientFetchUsesCache(t *testing.T) {
	var hits int64
	srv := measurementsServer(t, &hits)
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()

	c := NewClient(srv.URL, WithCache(mc, time.Minute))
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	first, err := c.Fetch(context.Background(), "ha-noi", "pm25", from, to)
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	second, err := c.Fetch(context.Background(), "ha-noi", "pm25", from, to)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if atomic.LoadInt64(&hits) != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %d vs %d", len(first), len(second))
	}
	if second[0].Datetime != first[0].Datetime {
		t.Fatalf("cached datetime mismatch: %q vs %q", second[0].Datetime, first[0].Datetime)
	}
}

func TestClientFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Fetch(context.Background(), "ha-noi", "pm25", time.Now().Add(-time.Hour), time.Now()); err == nil {
		t.Fatalf("expected error on upstream failure")
	}
}
