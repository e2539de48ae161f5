package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/septivank/lte-signal-map/internal/geocode"
	"go.uber.org/zap"
)

func newCityCenterResolver(t *testing.T, handler http.Handler) *geocode.CityCenterResolver {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := geocode.NewClient(server.URL, "lte-signal-map-backend/test", 2*time.Second)
	resolver, err := geocode.NewCityCenterResolver(client, testCacheSize, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	return resolver
}

func TestCityCenterResolve_Success(t *testing.T) {
	var gotQuery string
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`[{"lat": "40.7127281", "lon": "-74.0060152"}]`))
	}))

	center := resolver.Resolve(context.Background(), "New York", "NY", "United States")
	if center == nil {
		t.Fatal("Expected center, got nil")
	}

	if gotQuery != "New York, NY, United States" {
		t.Errorf("Unexpected query string: %q", gotQuery)
	}
	if center.Lat != 40.7127281 || center.Lon != -74.0060152 {
		t.Errorf("Unexpected center: %+v", center)
	}
}

func TestCityCenterResolve_EmptyCityNoNetworkCall(t *testing.T) {
	var calls int64
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`[]`))
	}))

	if center := resolver.Resolve(context.Background(), "", "NY", "United States"); center != nil {
		t.Errorf("Expected nil for empty city, got %+v", center)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Error("Expected no upstream call for empty city")
	}
}

func TestCityCenterResolve_SkipsEmptyQueryComponents(t *testing.T) {
	var gotQuery string
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`[{"lat": "1", "lon": "2"}]`))
	}))

	if center := resolver.Resolve(context.Background(), "Reykjavik", "", "Iceland"); center == nil {
		t.Fatal("Expected center, got nil")
	}
	if gotQuery != "Reykjavik, Iceland" {
		t.Errorf("Unexpected query string: %q", gotQuery)
	}
}

func TestCityCenterResolve_EmptyResultSet(t *testing.T) {
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	if center := resolver.Resolve(context.Background(), "Nowhereville", "", ""); center != nil {
		t.Errorf("Expected nil for empty result set, got %+v", center)
	}
}

func TestCityCenterResolve_MalformedCoordinates(t *testing.T) {
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "forty", "lon": "-74"}]`))
	}))

	if center := resolver.Resolve(context.Background(), "New York", "", ""); center != nil {
		t.Errorf("Expected nil for malformed coordinates, got %+v", center)
	}
}

func TestCityCenterResolve_CachesSuccess(t *testing.T) {
	var calls int64
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`[{"lat": "40.7", "lon": "-74.0"}]`))
	}))

	// Case-insensitive key: both resolve from one upstream call.
	resolver.Resolve(context.Background(), "New York", "NY", "United States")
	resolver.Resolve(context.Background(), "new york", "ny", "united states")

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("Expected exactly one upstream call, got %d", got)
	}
}

func TestCityCenterResolve_FailureNotCached(t *testing.T) {
	var calls int64
	resolver := newCityCenterResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"lat": "40.7", "lon": "-74.0"}]`))
	}))

	if center := resolver.Resolve(context.Background(), "New York", "", ""); center != nil {
		t.Fatalf("Expected nil on first failing call, got %+v", center)
	}

	center := resolver.Resolve(context.Background(), "New York", "", "")
	if center == nil {
		t.Error("Expected retry to succeed after earlier failure")
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("Expected two upstream calls, got %d", got)
	}
}
