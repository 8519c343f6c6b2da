package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/cache"
)

const (
	georisquesBaseURL      = "https://georisques.gouv.fr/api/v1"
	georisquesDefaultRange = 1000 // meters
	georisquesPageSize     = 20
)

// GeorisquesAdapter lists the classified industrial installations around an
// address. Each match carries a pertinence score used by the valve-insulation
// rubric: steam-heavy activities rate high, closed sites rate zero.
type GeorisquesAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
}

// NewGeorisques creates the classified-installations adapter.
func NewGeorisques(baseURL string, deps Deps, ttl time.Duration) *GeorisquesAdapter {
	if baseURL == "" {
		baseURL = georisquesBaseURL
	}
	return &GeorisquesAdapter{baseURL: baseURL, deps: deps, ttl: ttl}
}

// FindNearby returns the classified sites within radiusM meters of the point,
// most pertinent first.
func (a *GeorisquesAdapter) FindNearby(ctx context.Context, lat, lon float64, radiusM int) ([]domain.RegulatorySite, error) {
	if radiusM <= 0 {
		radiusM = georisquesDefaultRange
	}
	key := Key(SourceGeorisques, "nearby", fmt.Sprintf("%.5f", lat), fmt.Sprintf("%.5f", lon), strconv.Itoa(radiusM))
	return a.fetch(ctx, key, func(params url.Values) {
		params.Set("latlon", fmt.Sprintf("%f,%f", lon, lat))
		params.Set("rayon", strconv.Itoa(radiusM))
	})
}

// FindByCommune returns the classified sites registered in an INSEE commune.
func (a *GeorisquesAdapter) FindByCommune(ctx context.Context, cityCode string) ([]domain.RegulatorySite, error) {
	if cityCode == "" {
		return nil, nil
	}
	key := Key(SourceGeorisques, "commune", cityCode)
	return a.fetch(ctx, key, func(params url.Values) {
		params.Set("code_insee", cityCode)
	})
}

func (a *GeorisquesAdapter) fetch(ctx context.Context, key string, applyFilter func(url.Values)) ([]domain.RegulatorySite, error) {
	return cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) ([]domain.RegulatorySite, error) {
		params := url.Values{}
		params.Set("page", "1")
		params.Set("page_size", strconv.Itoa(georisquesPageSize))
		applyFilter(params)
		reqURL := fmt.Sprintf("%s/installations_classees?%s", a.baseURL, params.Encode())

		var payload georisquesResponse
		if err := a.deps.getJSON(ctx, SourceGeorisques, reqURL, nil, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}

		sites := make([]domain.RegulatorySite, 0, len(payload.Data))
		for _, installation := range payload.Data {
			sites = append(sites, installation.toSite())
		}
		sort.SliceStable(sites, func(i, j int) bool {
			return sites[i].Pertinence > sites[j].Pertinence
		})
		return sites, nil
	})
}

type georisquesResponse struct {
	Data []georisquesInstallation `json:"data"`
}

type georisquesInstallation struct {
	RaisonSociale   string   `json:"raison_sociale"`
	LibelleRegime   string   `json:"libelle_regime"`
	EtatActivite    string   `json:"etat_activite"`
	LibelleActivite string   `json:"libelle_activite"`
	Distance        *float64 `json:"distance"`
}

func (inst *georisquesInstallation) toSite() domain.RegulatorySite {
	raw, _ := json.Marshal(inst)
	return domain.RegulatorySite{
		Name:       inst.RaisonSociale,
		Regime:     inst.LibelleRegime,
		Status:     inst.EtatActivite,
		Activity:   inst.LibelleActivite,
		DistanceM:  inst.Distance,
		Pertinence: sitePertinence(inst.LibelleActivite, inst.LibelleRegime, inst.EtatActivite),
		Raw:        raw,
	}
}

// Activities with significant steam or hot-fluid networks, where valve
// insulation pays off quickly.
var steamHeavyActivities = []string{
	"vapeur", "chaufferie", "chimi", "raffin", "agroaliment",
	"papeter", "sucrer", "laiter", "distiller",
}

// Activities with some process heat but smaller networks.
var processHeatActivities = []string{
	"métallurg", "traitement de surface", "plasturg", "teinture",
	"blanchisser", "abattoir", "brasser",
}

// sitePertinence rates one installation 0..100 for valve-insulation
// prospection: an activity base, adjusted by the authorization regime,
// zeroed when the site no longer operates.
func sitePertinence(activity, regime, status string) float64 {
	activityLower := strings.ToLower(activity)

	base := 20.0
	switch {
	case matchesAny(activityLower, steamHeavyActivities):
		base = 80
	case matchesAny(activityLower, processHeatActivities):
		base = 60
	default:
		switch {
		case strings.Contains(strings.ToLower(regime), "autorisation"):
			base = 40
		case strings.Contains(strings.ToLower(regime), "enregistrement"):
			base = 30
		}
	}

	statusLower := strings.ToLower(status)
	switch {
	case strings.Contains(statusLower, "cess") || strings.Contains(statusLower, "arrêt"):
		return 0
	case strings.Contains(statusLower, "fonctionnement") || strings.Contains(statusLower, "activité"):
		return base
	default:
		// Unknown operating status, keep the lead but discount it.
		return base * 0.7
	}
}

func matchesAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
