package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/cache"
)

const (
	dpeBaseURL = "https://data.ademe.fr/data-fair/api/v1/datasets"
	dpeDataset = "dpe-v2-tertiaire-2"
	dpePerPage = 10
)

// DPEAdapter queries the public energy-diagnostic registry. A building can
// carry several diagnostics over the years; the most recent one wins.
type DPEAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
}

// NewDPE creates the energy-diagnostic adapter.
func NewDPE(baseURL string, deps Deps, ttl time.Duration) *DPEAdapter {
	if baseURL == "" {
		baseURL = dpeBaseURL
	}
	return &DPEAdapter{baseURL: baseURL, deps: deps, ttl: ttl}
}

// FindByBuildingID returns the latest diagnostic attached to the national
// building identifier, or nil.
func (a *DPEAdapter) FindByBuildingID(ctx context.Context, buildingID string) (*domain.EnergyPerformance, error) {
	key := Key(SourceDPE, "building", buildingID)
	return a.fetch(ctx, key, fmt.Sprintf("identifiant_rnb:%q", buildingID))
}

// FindByAddress returns the latest diagnostic matching the address line
// within a postal code, or nil. Used when no building identifier resolved.
func (a *DPEAdapter) FindByAddress(ctx context.Context, addressLine, postalCode string) (*domain.EnergyPerformance, error) {
	if addressLine == "" || postalCode == "" {
		return nil, nil
	}
	query := fmt.Sprintf("code_postal_ban:%q AND adresse_ban:(%s)", postalCode, escapeQueryString(addressLine))
	key := Key(SourceDPE, "address", postalCode, addressLine)
	return a.fetch(ctx, key, query)
}

func (a *DPEAdapter) fetch(ctx context.Context, key, queryString string) (*domain.EnergyPerformance, error) {
	energy, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (*domain.EnergyPerformance, error) {
		params := url.Values{}
		params.Set("qs", queryString)
		params.Set("size", fmt.Sprintf("%d", dpePerPage))
		reqURL := fmt.Sprintf("%s/%s/lines?%s", a.baseURL, dpeDataset, params.Encode())

		var payload dpeResponse
		if err := a.deps.getJSON(ctx, SourceDPE, reqURL, nil, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return latestDiagnostic(payload.Results), nil
	})
	if err != nil {
		return nil, err
	}
	return energy, nil
}

// latestDiagnostic keeps the newest record carrying an energy class.
func latestDiagnostic(records []dpeRecord) *domain.EnergyPerformance {
	valid := records[:0:0]
	for _, r := range records {
		if r.EtiquetteDPE != "" {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].issuedAt().After(valid[j].issuedAt())
	})
	return valid[0].toEnergy()
}

// escapeQueryString strips Lucene operators from free text so an address
// line cannot break the query syntax.
func escapeQueryString(text string) string {
	replacer := strings.NewReplacer(
		`"`, " ", `(`, " ", `)`, " ", `[`, " ", `]`, " ",
		`+`, " ", `-`, " ", `!`, " ", `:`, " ", `^`, " ",
		`~`, " ", `*`, " ", `?`, " ", `\`, " ", `/`, " ",
	)
	return strings.Join(strings.Fields(replacer.Replace(text)), " ")
}

type dpeResponse struct {
	Total   int         `json:"total"`
	Results []dpeRecord `json:"results"`
}

type dpeRecord struct {
	EtiquetteDPE   string   `json:"etiquette_dpe"`
	EtiquetteGES   string   `json:"etiquette_ges"`
	ConsoKWhM2     *float64 `json:"conso_kwhep_m2_an"`
	DateDiagnostic string   `json:"date_etablissement_dpe"`
}

func (r *dpeRecord) issuedAt() time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, r.DateDiagnostic); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r *dpeRecord) toEnergy() *domain.EnergyPerformance {
	raw, _ := json.Marshal(r)
	energy := &domain.EnergyPerformance{
		Class:            r.EtiquetteDPE,
		GESClass:         r.EtiquetteGES,
		ConsumptionKWhM2: r.ConsoKWhM2,
		Raw:              raw,
	}
	if issued := r.issuedAt(); !issued.IsZero() {
		energy.IssuedAt = &issued
	}
	return energy
}
