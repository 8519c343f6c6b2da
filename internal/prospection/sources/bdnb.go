package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/cache"
)

const bdnbBaseURL = "https://api.bdnb.io/v1/bdnb"

// BDNBAdapter queries the national building database (BDNB), the first of
// the two building-characteristic sources. Values there are model-derived,
// so every metric is flagged estimated.
type BDNBAdapter struct {
	baseURL string
	apiKey  string
	deps    Deps
	ttl     time.Duration
}

// NewBDNB creates the BDNB adapter.
func NewBDNB(baseURL, apiKey string, deps Deps, ttl time.Duration) *BDNBAdapter {
	if baseURL == "" {
		baseURL = bdnbBaseURL
	}
	return &BDNBAdapter{baseURL: baseURL, apiKey: apiKey, deps: deps, ttl: ttl}
}

// ByCoordinates returns the building group at the given point, or nil.
func (a *BDNBAdapter) ByCoordinates(ctx context.Context, lat, lon float64) (*domain.BuildingCharacteristics, error) {
	key := Key(SourceBDNB, "coords", fmt.Sprintf("%.5f", lat), fmt.Sprintf("%.5f", lon))
	return a.fetch(ctx, key, func(params url.Values) {
		params.Set("lat", fmt.Sprintf("%f", lat))
		params.Set("lon", fmt.Sprintf("%f", lon))
	})
}

// ByBuildingID returns the building group carrying the national building id.
func (a *BDNBAdapter) ByBuildingID(ctx context.Context, buildingID string) (*domain.BuildingCharacteristics, error) {
	key := Key(SourceBDNB, "building", buildingID)
	return a.fetch(ctx, key, func(params url.Values) {
		params.Set("rnb_id", buildingID)
	})
}

func (a *BDNBAdapter) fetch(ctx context.Context, key string, applyFilter func(url.Values)) (*domain.BuildingCharacteristics, error) {
	building, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (*domain.BuildingCharacteristics, error) {
		params := url.Values{}
		params.Set("limit", "1")
		applyFilter(params)
		reqURL := fmt.Sprintf("%s/donnees/batiment_groupe_complet?%s", a.baseURL, params.Encode())

		header := http.Header{}
		if a.apiKey != "" {
			header.Set("X-Api-Key", a.apiKey)
		}

		var payload []bdnbBuilding
		if err := a.deps.getJSON(ctx, SourceBDNB, reqURL, header, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if len(payload) == 0 {
			return nil, nil
		}
		return payload[0].toBuilding(), nil
	})
	if err != nil {
		return nil, err
	}
	return building, nil
}

// bdnbBuilding is the raw batiment_groupe_complet record.
type bdnbBuilding struct {
	BatimentGroupeID  string   `json:"batiment_groupe_id"`
	RNBID             string   `json:"rnb_id"`
	HauteurMean       *float64 `json:"hauteur_mean"`
	NbNiveau          *int     `json:"nb_niveau"`
	SurfaceEmpriseSol *float64 `json:"surface_emprise_sol"`
	TypeEnergie       string   `json:"type_energie_chauffage"`
	EnergieChauffage  string   `json:"energie_chauffage_appoint"`
	ChauffageSysteme  string   `json:"type_generateur_chauffage_principal"`
	NbLogement        *int     `json:"nb_log"`
	AnneeConstruction *int     `json:"annee_construction"`
	MajDate           string   `json:"date_maj"`
}

func (b *bdnbBuilding) toBuilding() *domain.BuildingCharacteristics {
	raw, _ := json.Marshal(b)

	building := &domain.BuildingCharacteristics{
		BuildingID:       b.RNBID,
		Floors:           b.NbNiveau,
		HeatingType:      b.TypeEnergie,
		HeatingSystem:    b.ChauffageSysteme,
		EnergyCarrier:    b.EnergieChauffage,
		DwellingCount:    b.NbLogement,
		ConstructionYear: b.AnneeConstruction,
		Raw:              raw,
	}
	if building.BuildingID == "" {
		building.BuildingID = b.BatimentGroupeID
	}
	if b.HauteurMean != nil {
		building.HeightM = domain.MetricOf(*b.HauteurMean, true)
	}
	if b.SurfaceEmpriseSol != nil {
		area := *b.SurfaceEmpriseSol
		if b.NbNiveau != nil && *b.NbNiveau > 1 {
			area *= float64(*b.NbNiveau)
		}
		building.FloorAreaM2 = domain.MetricOf(area, true)
	}
	if b.MajDate != "" {
		if t, err := time.Parse("2006-01-02", b.MajDate); err == nil {
			building.UpdatedAt = &t
		}
	}
	return building
}
