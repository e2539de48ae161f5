package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/septivank/lte-signal-map/internal/db"
	"github.com/septivank/lte-signal-map/internal/geocode"
	"github.com/septivank/lte-signal-map/internal/httpserver"
	"github.com/septivank/lte-signal-map/internal/repository"
	"github.com/septivank/lte-signal-map/internal/service"
	"github.com/septivank/lte-signal-map/internal/validator"
	"go.uber.org/zap"
)

type memStore struct {
	mu        sync.Mutex
	raw       []*db.RawMessage
	states    map[string]repository.DeviceStateFields
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]repository.DeviceStateFields)}
}

func (m *memStore) AppendRaw(_ context.Context, msg *db.RawMessage) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw, msg)
	return nil
}

func (m *memStore) UpsertDeviceState(_ context.Context, macAddr, deviceName string, fields repository.DeviceStateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[macAddr+"|"+deviceName] = fields
	return nil
}

type fixedPlace struct{ place *geocode.Place }

func (f *fixedPlace) Resolve(context.Context, float64, float64) *geocode.Place { return f.place }

type fixedCenter struct{ center *geocode.CityCenter }

func (f *fixedCenter) Resolve(context.Context, string, string, string) *geocode.CityCenter {
	return f.center
}

func str(s string) *string { return &s }

func newTestServer(t *testing.T, store *memStore, place *geocode.Place, center *geocode.CityCenter) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	ingest := service.NewIngestService(store, validator.NewValidator(), &fixedPlace{place}, &fixedCenter{center}, logger)
	handlers := httpserver.NewHandlers(ingest, nil, nil, logger)

	server := httptest.NewServer(httpserver.NewRouter(handlers))
	t.Cleanup(server.Close)
	return server
}

func TestPostIngest_EndToEnd(t *testing.T) {
	store := newMemStore()
	place := &geocode.Place{
		City:        str("New York"),
		State:       str("NY"),
		Country:     str("United States"),
		DisplayName: str("New York, NY, USA"),
	}
	center := &geocode.CityCenter{Lat: 40.7128, Lon: -74.0060}
	server := newTestServer(t, store, place, center)

	body := `{
		"device_name": "d1",
		"mac_addr": "AA:BB",
		"gps_location": {"latitude": 40.7128, "longitude": -74.0060},
		"lte_signal_strength": -80
	}`

	resp, err := http.Post(server.URL+"/ingest", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	var ok map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if ok["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", ok)
	}

	state, found := store.states["AA:BB|d1"]
	if !found {
		t.Fatal("Expected device state to be upserted")
	}
	if state.Location == nil || state.Location.Coordinates != [2]float64{-74.0060, 40.7128} {
		t.Errorf("Expected coordinates [-74.0060, 40.7128], got %+v", state.Location)
	}
	if state.DistanceFromCityKM == nil || *state.DistanceFromCityKM != 0.0 {
		t.Errorf("Expected distance_from_city_km 0.0, got %v", state.DistanceFromCityKM)
	}
	if len(store.raw) != 1 {
		t.Errorf("Expected one raw message, got %d", len(store.raw))
	}
}

func TestPostIngest_ValidationFailure(t *testing.T) {
	server := newTestServer(t, newMemStore(), nil, nil)

	resp, err := http.Post(server.URL+"/ingest", "application/json", strings.NewReader(`{"device_name": "d1"}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"] == "" {
		t.Error("Expected error message in body")
	}
}

func TestPostIngest_PersistenceFailure(t *testing.T) {
	store := newMemStore()
	store.appendErr = errors.New("store unreachable")
	server := newTestServer(t, store, nil, nil)

	body := `{
		"device_name": "d1",
		"mac_addr": "AA:BB",
		"gps_location": {"latitude": 1, "longitude": 2},
		"lte_signal_strength": -80
	}`

	resp, err := http.Post(server.URL+"/ingest", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, newMemStore(), nil, nil)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}
