package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/cache"
)

const (
	rechercheBaseURL = "https://recherche-entreprises.api.gouv.fr"
	recherchePerPage = 25
	// The API rejects very short free-text queries unless a structured
	// filter narrows the search.
	rechercheMinQueryLen = 3
)

// RechercheQuery is a registry search. At least one of Text or a structured
// filter must be set.
type RechercheQuery struct {
	Text       string
	NAFCode    string
	Department string
	Region     string
	PostalCode string
	Limit      int
}

func (q RechercheQuery) hasStructuredFilter() bool {
	return q.NAFCode != "" || q.Department != "" || q.Region != "" || q.PostalCode != ""
}

// RechercheAdapter queries the free, unauthenticated company search of
// recherche-entreprises.api.gouv.fr.
type RechercheAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
}

// NewRecherche creates the registry-search adapter.
func NewRecherche(baseURL string, deps Deps, ttl time.Duration) *RechercheAdapter {
	if baseURL == "" {
		baseURL = rechercheBaseURL
	}
	return &RechercheAdapter{baseURL: baseURL, deps: deps, ttl: ttl}
}

// Search returns up to Limit candidates, paginating upstream as needed.
// Results are deduplicated downstream; here one upstream page maps to ≤25
// companies, each possibly carrying several matching establishments.
func (a *RechercheAdapter) Search(ctx context.Context, query RechercheQuery) ([]domain.Candidate, error) {
	if query.Text != "" && len(query.Text) < rechercheMinQueryLen && !query.hasStructuredFilter() {
		return nil, apperr.Validation(fmt.Sprintf("query must be at least %d characters", rechercheMinQueryLen))
	}
	if query.Text == "" && !query.hasStructuredFilter() {
		return nil, apperr.Validation("either a text query or a structured filter is required")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = recherchePerPage
	}

	key := Key(SourceRecherche, "search", query.Text, query.NAFCode, query.Department, query.Region, query.PostalCode, strconv.Itoa(limit))
	return cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) ([]domain.Candidate, error) {
		return a.fetchAll(ctx, query, limit)
	})
}

// FindBySIREN looks one company up through the free search, used as the
// fallback when the authenticated registry is down.
func (a *RechercheAdapter) FindBySIREN(ctx context.Context, siren string) (*domain.Candidate, error) {
	if err := domain.ValidateSIREN(siren); err != nil {
		return nil, err
	}

	key := Key(SourceRecherche, "siren", siren)
	candidates, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) ([]domain.Candidate, error) {
		return a.fetchPage(ctx, RechercheQuery{Text: siren}, 1)
	})
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].SIREN == siren {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (a *RechercheAdapter) fetchAll(ctx context.Context, query RechercheQuery, limit int) ([]domain.Candidate, error) {
	var all []domain.Candidate
	for page := 1; len(all) < limit; page++ {
		candidates, err := a.fetchPage(ctx, query, page)
		if err != nil {
			if isNotFound(err) {
				break
			}
			// Keep what earlier pages already produced.
			if len(all) > 0 {
				a.deps.Log.SourceDegraded(SourceRecherche, "search", err)
				break
			}
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}
		all = append(all, candidates...)
		if len(candidates) < recherchePerPage {
			break
		}
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (a *RechercheAdapter) fetchPage(ctx context.Context, query RechercheQuery, page int) ([]domain.Candidate, error) {
	params := url.Values{}
	if query.Text != "" {
		params.Set("q", query.Text)
	}
	if query.NAFCode != "" {
		params.Set("activite_principale", query.NAFCode)
	}
	if query.Department != "" {
		params.Set("departement", query.Department)
	}
	if query.Region != "" {
		params.Set("region", query.Region)
	}
	if query.PostalCode != "" {
		params.Set("code_postal", query.PostalCode)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(recherchePerPage))

	reqURL := fmt.Sprintf("%s/search?%s", a.baseURL, params.Encode())

	var payload rechercheResponse
	if err := a.deps.getJSON(ctx, SourceRecherche, reqURL, nil, &payload); err != nil {
		return nil, err
	}

	var candidates []domain.Candidate
	for _, company := range payload.Results {
		candidates = append(candidates, company.toCandidates()...)
	}
	return candidates, nil
}

// rechercheResponse is the raw payload of recherche-entreprises.api.gouv.fr.
type rechercheResponse struct {
	Results      []rechercheCompany `json:"results"`
	TotalResults int                `json:"total_results"`
	Page         int                `json:"page"`
	PerPage      int                `json:"per_page"`
}

type rechercheCompany struct {
	Siren                  string                    `json:"siren"`
	NomComplet             string                    `json:"nom_complet"`
	NomRaisonSociale       string                    `json:"nom_raison_sociale"`
	ActivitePrincipale     string                    `json:"activite_principale"`
	EtatAdministratif      string                    `json:"etat_administratif"`
	Siege                  *rechercheEtablissement   `json:"siege"`
	MatchingEtablissements []rechercheEtablissement  `json:"matching_etablissements"`
}

type rechercheEtablissement struct {
	Siret              string `json:"siret"`
	ActivitePrincipale string `json:"activite_principale"`
	Adresse            string `json:"adresse"`
	CodePostal         string `json:"code_postal"`
	LibelleCommune     string `json:"libelle_commune"`
	Latitude           string `json:"latitude"`
	Longitude          string `json:"longitude"`
	EtatAdministratif  string `json:"etat_administratif"`
}

// toCandidates maps one company to candidates, one per establishment. The
// siege is used when no establishment matched the filters directly.
func (c *rechercheCompany) toCandidates() []domain.Candidate {
	name := c.NomComplet
	if name == "" {
		name = c.NomRaisonSociale
	}

	establishments := c.MatchingEtablissements
	if len(establishments) == 0 && c.Siege != nil {
		establishments = []rechercheEtablissement{*c.Siege}
	}

	raw, _ := json.Marshal(c)

	var candidates []domain.Candidate
	for _, etab := range establishments {
		if etab.Siret == "" {
			continue
		}
		naf := etab.ActivitePrincipale
		if naf == "" {
			naf = c.ActivitePrincipale
		}
		candidate := domain.Candidate{
			SIREN:   c.Siren,
			SIRET:   etab.Siret,
			Name:    name,
			NAFCode: naf,
			Address: domain.Address{
				Line:       etab.Adresse,
				PostalCode: etab.CodePostal,
				City:       etab.LibelleCommune,
			},
			Open: etab.EtatAdministratif == "A",
			Raw:  raw,
		}
		if lat, err := strconv.ParseFloat(etab.Latitude, 64); err == nil {
			if lon, err := strconv.ParseFloat(etab.Longitude, 64); err == nil {
				candidate.Latitude = &lat
				candidate.Longitude = &lon
			}
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}
