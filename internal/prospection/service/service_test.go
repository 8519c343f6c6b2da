package service

import (
	"context"
	"strings"
	"testing"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/internal/prospection/enrich"
	"prospection_backend/internal/prospection/scoring"
	"prospection_backend/internal/prospection/sources"
	"prospection_backend/internal/prospection/transport"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/logger"
)

type fakeConfig struct {
	policy      string
	contactsMax int
}

func (f *fakeConfig) GetEnabledSources() map[string]bool { return nil }
func (f *fakeConfig) GetMinScores() map[string]float64   { return nil }
func (f *fakeConfig) GetMaxEnrichConcurrency() int       { return 4 }
func (f *fakeConfig) GetTechnicalFilterPolicy() string {
	if f.policy == "" {
		return "keep"
	}
	return f.policy
}
func (f *fakeConfig) GetMaxContactEnrichments() int { return f.contactsMax }

type fakeRegistry struct {
	byCode  map[string][]domain.Candidate
	queries []sources.RechercheQuery
}

func (f *fakeRegistry) Search(ctx context.Context, query sources.RechercheQuery) ([]domain.Candidate, error) {
	f.queries = append(f.queries, query)
	return f.byCode[query.NAFCode], nil
}

// fakeEnricher attaches a fixed building per SIRET prefix and tracks calls.
type fakeEnricher struct {
	heights      map[string]float64
	contactCalls int
}

func (f *fakeEnricher) EnrichCandidate(ctx context.Context, candidate *domain.Candidate, opts enrich.Options) *domain.EnrichedProfile {
	profile := &domain.EnrichedProfile{
		SIREN:   candidate.SIREN,
		SIRET:   candidate.SIRET,
		Name:    candidate.Name,
		NAFCode: candidate.NAFCode,
		Address: candidate.Address,
		Sources: []string{sources.SourceRecherche},
	}
	if opts.IdentityOnly {
		return profile
	}
	if height, ok := f.heights[candidate.SIRET]; ok {
		profile.Building = &domain.BuildingCharacteristics{
			HeightM:     domain.MetricOf(height, false),
			FloorAreaM2: domain.MetricOf(2500, true),
			HeatingType: "air chaud",
		}
		profile.Sources = append(profile.Sources, sources.SourceBDNB)
	}
	return profile
}

func (f *fakeEnricher) EnrichByIdentifier(ctx context.Context, id string, opts enrich.Options) (*domain.EnrichedProfile, error) {
	return &domain.EnrichedProfile{SIREN: domain.SIRENOf(id), SIRET: id, Partial: true}, nil
}

func (f *fakeEnricher) EnrichContact(ctx context.Context, profile *domain.EnrichedProfile) {
	f.contactCalls++
	profile.Contact = &domain.Contact{Phone: "+33100000000"}
}

func candidate(siret, name, naf string) domain.Candidate {
	return domain.Candidate{
		SIREN:   domain.SIRENOf(siret),
		SIRET:   siret,
		Name:    name,
		NAFCode: naf,
		Address: domain.Address{Line: "1 rue du test", PostalCode: "76000", City: "Rouen"},
		Open:    true,
	}
}

func newService(registry *fakeRegistry, enricher *fakeEnricher, cfg *fakeConfig) *Service {
	return New(registry, enricher, scoring.NewEngine(cfg.GetMinScores()), cfg, logger.New("development"))
}

func TestSearchRequiresCodesOrGeography(t *testing.T) {
	svc := newService(&fakeRegistry{}, &fakeEnricher{}, &fakeConfig{})
	_, err := svc.Search(context.Background(), &transport.SearchCriteria{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchRejectsInvalidCriteria(t *testing.T) {
	svc := newService(&fakeRegistry{}, &fakeEnricher{}, &fakeConfig{})
	cases := []*transport.SearchCriteria{
		{Product: "isolation", Codes: []string{"52.10"}},
		{PostalCode: "ABCDE"},
		{Codes: []string{"52.10"}, EnergyClasses: []string{"H"}},
	}
	for i, criteria := range cases {
		if _, err := svc.Search(context.Background(), criteria); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestSearchExpandsCodesAndDeduplicates(t *testing.T) {
	duplicate := candidate("11111111100011", "Gare Services", "52.10A")
	registry := &fakeRegistry{byCode: map[string][]domain.Candidate{
		"52.10A": {duplicate},
		"52.10B": {duplicate, candidate("22222222200022", "Entrepôt Nord", "52.10B")},
	}}
	enricher := &fakeEnricher{heights: map[string]float64{
		"11111111100011": 4,
		"22222222200022": 11,
	}}
	svc := newService(registry, enricher, &fakeConfig{})

	result, err := svc.Search(context.Background(), &transport.SearchCriteria{
		Codes:    []string{"52.10"},
		Region:   "Normandie",
		Product:  "destratification",
		PageSize: 5,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(registry.queries) != 2 {
		t.Fatalf("expected one registry query per expanded code, got %d", len(registry.queries))
	}
	for _, q := range registry.queries {
		if q.Region != "Normandie" {
			t.Fatalf("geography filter not forwarded: %+v", q)
		}
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 deduplicated prospects, got %d", result.Total)
	}
	if got := result.Criteria.ExpandedCodes; len(got) != 2 || got[0] != "52.10A" || got[1] != "52.10B" {
		t.Fatalf("unexpected expansion %v", got)
	}

	// The 11m warehouse must outrank the 4m one.
	if result.Results[0].Profile.SIRET != "22222222200022" {
		t.Fatalf("expected the taller building first, got %q", result.Results[0].Profile.SIRET)
	}
	for _, item := range result.Results {
		if item.Scoring == nil || item.Scoring.Score < 0 || item.Scoring.Score > 100 {
			t.Fatalf("score out of range: %+v", item.Scoring)
		}
		if !stringIn(sources.SourceRecherche, item.Profile.Sources) {
			t.Fatalf("registry source missing from %v", item.Profile.Sources)
		}
	}
	if !stringIn(sources.SourceRecherche, result.Sources) {
		t.Fatalf("registry source missing from result sources %v", result.Sources)
	}
}

func TestSearchTechnicalFilterPolicy(t *testing.T) {
	registry := &fakeRegistry{byCode: map[string][]domain.Candidate{
		"52.10B": {
			candidate("11111111100011", "Avec bâtiment", "52.10B"),
			candidate("22222222200022", "Sans bâtiment", "52.10B"),
		},
	}}
	enricher := &fakeEnricher{heights: map[string]float64{"11111111100011": 12}}
	minHeight := 8.0
	criteria := &transport.SearchCriteria{Codes: []string{"5210b"}, MinHeightM: &minHeight}

	kept, err := newService(registry, enricher, &fakeConfig{policy: "keep"}).Search(context.Background(), criteria)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if kept.Total != 2 {
		t.Fatalf("keep policy must retain the profile missing height, got %d", kept.Total)
	}

	dropped, err := newService(registry, enricher, &fakeConfig{policy: "drop"}).Search(context.Background(), criteria)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if dropped.Total != 1 {
		t.Fatalf("drop policy must reject the profile missing height, got %d", dropped.Total)
	}
	if dropped.Results[0].Profile.Name != "Avec bâtiment" {
		t.Fatalf("wrong survivor %q", dropped.Results[0].Profile.Name)
	}
}

func TestSearchBelowThresholdHeightRejected(t *testing.T) {
	registry := &fakeRegistry{byCode: map[string][]domain.Candidate{
		"52.10B": {candidate("11111111100011", "Trop bas", "52.10B")},
	}}
	enricher := &fakeEnricher{heights: map[string]float64{"11111111100011": 4}}
	minHeight := 8.0

	result, err := newService(registry, enricher, &fakeConfig{}).Search(context.Background(), &transport.SearchCriteria{
		Codes: []string{"5210b"}, MinHeightM: &minHeight,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("a present height below the threshold must be rejected regardless of policy, got %d", result.Total)
	}
}

func TestSearchPaginates(t *testing.T) {
	var all []domain.Candidate
	for _, siret := range []string{"11111111100011", "22222222200022", "33333333300033"} {
		all = append(all, candidate(siret, "Ets "+siret, "52.10B"))
	}
	registry := &fakeRegistry{byCode: map[string][]domain.Candidate{"52.10B": all}}
	svc := newService(registry, &fakeEnricher{}, &fakeConfig{})

	result, err := svc.Search(context.Background(), &transport.SearchCriteria{
		Codes: []string{"5210b"}, Page: 2, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("expected pre-pagination total 3, got %d", result.Total)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result on page 2, got %d", len(result.Results))
	}
}

func TestSearchContactEnrichmentIsBounded(t *testing.T) {
	var all []domain.Candidate
	for _, siret := range []string{"11111111100011", "22222222200022", "33333333300033"} {
		all = append(all, candidate(siret, "Ets "+siret, "52.10B"))
	}
	registry := &fakeRegistry{byCode: map[string][]domain.Candidate{"52.10B": all}}
	enricher := &fakeEnricher{}
	svc := newService(registry, enricher, &fakeConfig{contactsMax: 2})

	_, err := svc.Search(context.Background(), &transport.SearchCriteria{
		Codes: []string{"5210b"}, WithContacts: true,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if enricher.contactCalls != 2 {
		t.Fatalf("expected 2 contact enrichments, got %d", enricher.contactCalls)
	}
}

func TestSearchUnknownCodesReturnEmpty(t *testing.T) {
	svc := newService(&fakeRegistry{}, &fakeEnricher{}, &fakeConfig{})
	result, err := svc.Search(context.Background(), &transport.SearchCriteria{Codes: []string{"99.99"}})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if result.Total != 0 || len(result.Results) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestSuggest(t *testing.T) {
	registry := &fakeRegistry{byCode: map[string][]domain.Candidate{
		"": {candidate("11111111100011", "Boulangerie Martin", "10.71C")},
	}}
	svc := newService(registry, &fakeEnricher{}, &fakeConfig{})

	if _, err := svc.Suggest(context.Background(), "ma", 5); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for short query, got %v", err)
	}

	suggestions, err := svc.Suggest(context.Background(), "martin", 5)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Name != "Boulangerie Martin" {
		t.Fatalf("unexpected suggestions %+v", suggestions)
	}

	if _, err := svc.Suggest(context.Background(), "martin", 50); err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	last := registry.queries[len(registry.queries)-1]
	if last.Limit != suggestMaxLimit {
		t.Fatalf("oversized limit must be clamped to %d, got %d", suggestMaxLimit, last.Limit)
	}
	if _, err := svc.Suggest(context.Background(), "martin", 0); err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	last = registry.queries[len(registry.queries)-1]
	if last.Limit != 10 {
		t.Fatalf("missing limit must default to 10, got %d", last.Limit)
	}
}

func TestFormatForExport(t *testing.T) {
	height := domain.MetricOf(11, false)
	area := domain.MetricOf(2500, true)
	result := &transport.ProspectionResult{
		Results: []transport.ProspectionItem{{
			Profile: &domain.EnrichedProfile{
				SIREN:   "111111111",
				SIRET:   "11111111100011",
				Name:    "Entrepôt Nord",
				NAFCode: "52.10B",
				Address: domain.Address{Line: "1 rue du test", PostalCode: "76000", City: "Rouen"},
				Building: &domain.BuildingCharacteristics{
					HeightM:     height,
					FloorAreaM2: area,
				},
				Energy:       &domain.EnergyPerformance{Class: "F"},
				Contact:      &domain.Contact{Phone: "+33100000000", Email: "contact@exemple.fr"},
				Completeness: 90,
			},
			Scoring: &scoring.Result{
				Score:          85,
				Eligible:       true,
				Justifications: []string{"ceiling height 11 m (very tall)", "energy class F, high retrofit potential"},
			},
		}},
	}

	rows := FormatForExport(result)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.HeightM != "11" {
		t.Fatalf("measured height must be exported bare, got %q", row.HeightM)
	}
	if row.FloorAreaM2 != "~2500" {
		t.Fatalf("estimated area must be flagged, got %q", row.FloorAreaM2)
	}
	if row.Score != 85 || !row.Eligible {
		t.Fatalf("scoring not flattened: %+v", row)
	}
	if !strings.Contains(row.Justification, "ceiling height") {
		t.Fatalf("justifications not joined: %q", row.Justification)
	}
}
