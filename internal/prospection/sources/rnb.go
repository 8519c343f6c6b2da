package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"prospection_backend/platform/cache"
)

const rnbBaseURL = "https://rnb-api.beta.gouv.fr/api/alpha"

// RNBAdapter resolves coordinates to the stable national building identifier
// used as the cross-source pivot.
type RNBAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
}

// NewRNB creates the building-identifier adapter.
func NewRNB(baseURL string, deps Deps, ttl time.Duration) *RNBAdapter {
	if baseURL == "" {
		baseURL = rnbBaseURL
	}
	return &RNBAdapter{baseURL: baseURL, deps: deps, ttl: ttl}
}

// ResolveByCoordinates returns the identifier of the building at the point,
// or "" when no building is registered there.
func (a *RNBAdapter) ResolveByCoordinates(ctx context.Context, lat, lon float64) (string, error) {
	key := Key(SourceRNB, "point", fmt.Sprintf("%.5f", lat), fmt.Sprintf("%.5f", lon))
	return cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (string, error) {
		params := url.Values{}
		params.Set("point", fmt.Sprintf("%f,%f", lat, lon))
		reqURL := fmt.Sprintf("%s/buildings/?%s", a.baseURL, params.Encode())

		var payload rnbResponse
		if err := a.deps.getJSON(ctx, SourceRNB, reqURL, nil, &payload); err != nil {
			if isNotFound(err) {
				return "", nil
			}
			return "", err
		}
		if len(payload.Results) == 0 {
			return "", nil
		}
		return payload.Results[0].RNBID, nil
	})
}

type rnbResponse struct {
	Results []struct {
		RNBID  string `json:"rnb_id"`
		Status string `json:"status"`
	} `json:"results"`
}
