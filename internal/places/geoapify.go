package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/globaltrotters/apiserver/config"
	"github.com/globaltrotters/apiserver/types"
)

const (
	rectDelta      = 0.1
	placesLimit    = 20
	unknownName    = "Unknown Location"
	defaultBaseURL = "https://api.geoapify.com"
	streetViewURL  = "https://maps.googleapis.com/maps/api/streetview"
)

// DefaultCategories are searched when the caller names none.
var DefaultCategories = []string{
	"tourism",
	"entertainment",
	"leisure",
	"national_park",
	"commercial.food_and_drink",
}

// ErrNoMatch is returned when geocoding finds nothing for the text.
var ErrNoMatch = errors.New("no geocoding match")

// Cache is the subset of the Redis cache used for geocode results.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Client talks to the Geoapify geocoding and places APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	mapsKey    string
	cache      Cache
	cacheTTL   time.Duration
}

// ErrMissingMapsKey is returned when places search is configured without
// the Street View key that every found activity's image depends on.
var ErrMissingMapsKey = errors.New("places: GOOGLE_MAPS_API_KEY is required when GEOAPIFY_API_KEY is set")

// NewClient builds a Geoapify client. cache may be nil.
func NewClient(cfg config.GeoapifyConfig, cache Cache, cacheTTL time.Duration) (*Client, error) {
	if strings.TrimSpace(cfg.MapsAPIKey) == "" {
		return nil, ErrMissingMapsKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		mapsKey:    cfg.MapsAPIKey,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}, nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Name         string   `json:"name"`
		Categories   []string `json:"categories"`
		AddressLine2 string   `json:"address_line2"`
		Formatted    string   `json:"formatted"`
		Lon          float64  `json:"lon"`
		Lat          float64  `json:"lat"`
	} `json:"properties"`
}

// lonLat prefers the GeoJSON geometry and falls back to the properties.
func (f feature) lonLat() (float64, float64) {
	if len(f.Geometry.Coordinates) >= 2 {
		return f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
	}
	return f.Properties.Lon, f.Properties.Lat
}

// Geocode returns the coordinates of the first match for text.
func (c *Client) Geocode(ctx context.Context, text string) (types.Coordinates, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Coordinates{}, ErrNoMatch
	}

	cacheKey := "geocode:" + strings.ToLower(text)
	if c.cache != nil {
		var cached types.Coordinates
		hit, err := c.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("places: geocode cache read: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	query := url.Values{}
	query.Set("text", text)
	query.Set("apiKey", c.apiKey)

	var result featureCollection
	if err := c.getJSON(ctx, "/v1/geocode/search", query, &result); err != nil {
		return types.Coordinates{}, err
	}
	if len(result.Features) == 0 {
		return types.Coordinates{}, ErrNoMatch
	}

	lon, lat := result.Features[0].lonLat()
	coords := types.Coordinates{Lat: lat, Lon: lon}
	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, coords, c.cacheTTL); err != nil {
			log.Printf("places: geocode cache write: %v", err)
		}
	}
	return coords, nil
}

// Places lists up to 20 points of interest in a box of ±0.1° around center.
func (c *Client) Places(ctx context.Context, center types.Coordinates, categories []string) ([]types.Place, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	query := url.Values{}
	query.Set("categories", strings.Join(categories, ","))
	query.Set("filter", "rect:"+rect(center, rectDelta))
	query.Set("limit", strconv.Itoa(placesLimit))
	query.Set("apiKey", c.apiKey)

	var result featureCollection
	if err := c.getJSON(ctx, "/v2/places", query, &result); err != nil {
		return nil, err
	}

	found := make([]types.Place, 0, len(result.Features))
	for _, f := range result.Features {
		lon, lat := f.lonLat()
		name := strings.TrimSpace(f.Properties.Name)
		if name == "" {
			name = unknownName
		}
		address := f.Properties.AddressLine2
		if address == "" {
			address = f.Properties.Formatted
		}
		kinds := f.Properties.Categories
		if kinds == nil {
			kinds = []string{}
		}
		found = append(found, types.Place{
			Name:        name,
			Category:    kinds,
			Address:     address,
			Coordinates: [2]float64{lon, lat},
			Image:       c.streetView(lat, lon),
		})
	}
	return found, nil
}

func (c *Client) streetView(lat, lon float64) string {
	query := url.Values{}
	query.Set("size", "600x400")
	query.Set("location", formatCoord(lat)+","+formatCoord(lon))
	query.Set("key", c.mapsKey)
	return streetViewURL + "?" + query.Encode()
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geoapify %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("geoapify %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("geoapify %s: decode: %w", path, err)
	}
	return nil
}

// rect renders the Geoapify rect filter "lon1,lat1,lon2,lat2".
func rect(center types.Coordinates, delta float64) string {
	return strings.Join([]string{
		formatCoord(center.Lon - delta),
		formatCoord(center.Lat + delta),
		formatCoord(center.Lon + delta),
		formatCoord(center.Lat - delta),
	}, ",")
}

func formatCoord(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
