package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/cache"
)

const (
	bdtopoBaseURL = "https://data.geopf.fr/wfs/ows"
	bdtopoLayer   = "BDTOPO_V3:batiment"
	// Half-size of the lookup square around a point, in degrees. Roughly
	// 30 meters at French latitudes.
	bdtopoBBoxDelta = 0.0003
)

// BDTopoAdapter queries building geometry from the national topographic
// database through its WFS endpoint. Heights there come from surveyed
// geometry, so they are treated as measured.
type BDTopoAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
}

// NewBDTopo creates the topographic building adapter.
func NewBDTopo(baseURL string, deps Deps, ttl time.Duration) *BDTopoAdapter {
	if baseURL == "" {
		baseURL = bdtopoBaseURL
	}
	return &BDTopoAdapter{baseURL: baseURL, deps: deps, ttl: ttl}
}

// ByCoordinates returns the building whose footprint intersects a small
// square around the point, or nil when the point falls on no building.
func (a *BDTopoAdapter) ByCoordinates(ctx context.Context, lat, lon float64) (*domain.BuildingCharacteristics, error) {
	key := Key(SourceBDTopo, "coords", fmt.Sprintf("%.5f", lat), fmt.Sprintf("%.5f", lon))
	building, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (*domain.BuildingCharacteristics, error) {
		params := url.Values{}
		params.Set("service", "WFS")
		params.Set("version", "2.0.0")
		params.Set("request", "GetFeature")
		params.Set("typeName", bdtopoLayer)
		params.Set("outputFormat", "application/json")
		params.Set("count", "1")
		params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f,EPSG:4326",
			lat-bdtopoBBoxDelta, lon-bdtopoBBoxDelta,
			lat+bdtopoBBoxDelta, lon+bdtopoBBoxDelta))

		reqURL := fmt.Sprintf("%s?%s", a.baseURL, params.Encode())

		var payload bdtopoResponse
		if err := a.deps.getJSON(ctx, SourceBDTopo, reqURL, nil, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if len(payload.Features) == 0 {
			return nil, nil
		}
		return payload.Features[0].toBuilding(), nil
	})
	if err != nil {
		return nil, err
	}
	return building, nil
}

// bdtopoResponse is the GeoJSON payload of the WFS GetFeature call.
type bdtopoResponse struct {
	Features []bdtopoFeature `json:"features"`
}

type bdtopoFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Hauteur          *float64 `json:"hauteur"`
		NombreEtages     *int     `json:"nombre_d_etages"`
		Usage            string   `json:"usage_1"`
		DateModification string   `json:"date_modification"`
	} `json:"properties"`
}

func (f *bdtopoFeature) toBuilding() *domain.BuildingCharacteristics {
	raw, _ := json.Marshal(f)

	building := &domain.BuildingCharacteristics{
		Floors: f.Properties.NombreEtages,
		Raw:    raw,
	}
	if f.Properties.Hauteur != nil {
		building.HeightM = domain.MetricOf(*f.Properties.Hauteur, false)
	}
	if f.Properties.DateModification != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, f.Properties.DateModification); err == nil {
				building.UpdatedAt = &t
				break
			}
		}
	}
	return building
}
