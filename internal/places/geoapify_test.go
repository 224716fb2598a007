package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/globaltrotters/apiserver/config"
	"github.com/globaltrotters/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache Cache) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.GeoapifyConfig{
		APIKey:     "geo-key",
		BaseURL:    server.URL,
		MapsAPIKey: "maps-key",
		Timeout:    time.Second,
	}, cache, time.Hour)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresMapsKey(t *testing.T) {
	_, err := NewClient(config.GeoapifyConfig{APIKey: "geo-key", MapsAPIKey: "  "}, nil, time.Hour)
	assert.ErrorIs(t, err, ErrMissingMapsKey)
}

func TestGeocodeReturnsFirstFeature(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/geocode/search", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("text"))
		assert.Equal(t, "geo-key", r.URL.Query().Get("apiKey"))
		_, _ = w.Write([]byte(`{"features":[
			{"geometry":{"coordinates":[2.35,48.85]}},
			{"geometry":{"coordinates":[-95.55,33.66]}}
		]}`))
	}, newMemoryCache())

	coords, err := client.Geocode(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, types.Coordinates{Lat: 48.85, Lon: 2.35}, coords)

	// Second lookup is served from the cache.
	coords, err = client.Geocode(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, types.Coordinates{Lat: 48.85, Lon: 2.35}, coords)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocodeNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}, nil)

	_, err := client.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestGeocodeUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}, nil)

	_, err := client.Geocode(context.Background(), "Paris")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
	assert.Contains(t, err.Error(), "429")
}

func TestPlacesMapsFeatures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/places", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, strings.Join(DefaultCategories, ","), query.Get("categories"))
		assert.Equal(t, "rect:"+rect(types.Coordinates{Lat: 48.85, Lon: 2.35}, 0.1), query.Get("filter"))
		assert.Equal(t, "20", query.Get("limit"))
		_, _ = w.Write([]byte(`{"features":[
			{
				"geometry":{"coordinates":[2.2945,48.8584]},
				"properties":{"name":"Eiffel Tower","categories":["tourism.sights"],"address_line2":"Avenue Anatole France","formatted":"Eiffel Tower, Paris"}
			},
			{
				"geometry":{"coordinates":[2.3376,48.8606]},
				"properties":{"categories":["entertainment.museum"],"formatted":"Rue de Rivoli, Paris"}
			}
		]}`))
	}, nil)

	found, err := client.Places(context.Background(), types.Coordinates{Lat: 48.85, Lon: 2.35}, nil)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "Eiffel Tower", found[0].Name)
	assert.Equal(t, []string{"tourism.sights"}, found[0].Category)
	assert.Equal(t, "Avenue Anatole France", found[0].Address)
	assert.Equal(t, [2]float64{2.2945, 48.8584}, found[0].Coordinates)
	assert.Contains(t, found[0].Image, "location=48.8584%2C2.2945")
	assert.Contains(t, found[0].Image, "key=maps-key")

	assert.Equal(t, "Unknown Location", found[1].Name)
	assert.Equal(t, "Rue de Rivoli, Paris", found[1].Address)
}

func TestPlacesCustomCategories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "leisure.park", r.URL.Query().Get("categories"))
		_, _ = w.Write([]byte(`{"features":[]}`))
	}, nil)

	found, err := client.Places(context.Background(), types.Coordinates{}, []string{"leisure.park"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRect(t *testing.T) {
	assert.Equal(t, "9.5,20.5,10.5,19.5", rect(types.Coordinates{Lat: 20, Lon: 10}, 0.5))
}
