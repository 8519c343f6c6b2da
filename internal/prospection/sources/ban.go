package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/cache"
)

const banBaseURL = "https://api-adresse.data.gouv.fr"

// BANAdapter geocodes free-text addresses against the Base Adresse Nationale.
type BANAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
}

// NewBAN creates the geocoding adapter.
func NewBAN(baseURL string, deps Deps, ttl time.Duration) *BANAdapter {
	if baseURL == "" {
		baseURL = banBaseURL
	}
	return &BANAdapter{baseURL: baseURL, deps: deps, ttl: ttl}
}

// Geocode returns ranked candidates for a free-text address, best first.
// Callers should treat a score below 0.4 as low confidence.
func (a *BANAdapter) Geocode(ctx context.Context, query string, limit int) ([]domain.GeocodedAddress, error) {
	if query == "" {
		return nil, apperr.Validation("geocode query is required")
	}
	if limit <= 0 {
		limit = 5
	}

	key := Key(SourceBAN, "search", query, strconv.Itoa(limit))
	return cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) ([]domain.GeocodedAddress, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("limit", strconv.Itoa(limit))
		reqURL := fmt.Sprintf("%s/search/?%s", a.baseURL, params.Encode())

		var payload banResponse
		if err := a.deps.getJSON(ctx, SourceBAN, reqURL, nil, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}

		results := make([]domain.GeocodedAddress, 0, len(payload.Features))
		for _, feature := range payload.Features {
			results = append(results, feature.toGeocoded())
		}
		return results, nil
	})
}

// GeocodeBest returns the top candidate, or nil when nothing matched.
func (a *BANAdapter) GeocodeBest(ctx context.Context, query string) (*domain.GeocodedAddress, error) {
	results, err := a.Geocode(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// banResponse is the GeoJSON payload of api-adresse.data.gouv.fr.
type banResponse struct {
	Features []banFeature `json:"features"`
}

type banFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat
	} `json:"geometry"`
	Properties struct {
		Label    string  `json:"label"`
		Score    float64 `json:"score"`
		Postcode string  `json:"postcode"`
		CityCode string  `json:"citycode"`
		City     string  `json:"city"`
		Context  string  `json:"context"`
	} `json:"properties"`
}

func (f *banFeature) toGeocoded() domain.GeocodedAddress {
	geocoded := domain.GeocodedAddress{
		Label:      f.Properties.Label,
		Score:      f.Properties.Score,
		CityCode:   f.Properties.CityCode,
		PostalCode: f.Properties.Postcode,
		City:       f.Properties.City,
		Context:    f.Properties.Context,
	}
	if len(f.Geometry.Coordinates) == 2 {
		geocoded.Longitude = f.Geometry.Coordinates[0]
		geocoded.Latitude = f.Geometry.Coordinates[1]
	}
	return geocoded
}
