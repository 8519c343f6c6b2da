// Package service is the top-level prospection entry point: criteria in,
// ranked and paginated prospects out.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"prospection_backend/internal/naf"
	"prospection_backend/internal/prospection/domain"
	"prospection_backend/internal/prospection/enrich"
	"prospection_backend/internal/prospection/scoring"
	"prospection_backend/internal/prospection/sources"
	"prospection_backend/internal/prospection/transport"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/config"
	"prospection_backend/platform/logger"
	"prospection_backend/platform/validator"
)

const (
	defaultPageSize = 20
	// Upper bound on candidates pulled from the registry per expanded code.
	maxCandidatesPerCode = 100
	suggestMinQueryLen   = 3
	suggestMaxLimit      = 20
)

// RegistrySearch is the registry fan-out port.
type RegistrySearch interface {
	Search(ctx context.Context, query sources.RechercheQuery) ([]domain.Candidate, error)
}

// Enricher is the per-candidate enrichment port.
type Enricher interface {
	EnrichCandidate(ctx context.Context, candidate *domain.Candidate, opts enrich.Options) *domain.EnrichedProfile
	EnrichByIdentifier(ctx context.Context, id string, opts enrich.Options) (*domain.EnrichedProfile, error)
	EnrichContact(ctx context.Context, profile *domain.EnrichedProfile)
}

// Scorer is the product-rubric port.
type Scorer interface {
	Score(product domain.Product, profile *domain.EnrichedProfile) scoring.Result
}

// Service runs the prospection pipeline.
type Service struct {
	registry RegistrySearch
	enricher Enricher
	scorer   Scorer
	cfg      config.ProspectionConfig
	log      *logger.Logger
}

// New creates the prospection service.
func New(registry RegistrySearch, enricher Enricher, scorer Scorer, cfg config.ProspectionConfig, log *logger.Logger) *Service {
	return &Service{
		registry: registry,
		enricher: enricher,
		scorer:   scorer,
		cfg:      cfg,
		log:      log,
	}
}

// Search validates and expands the criteria, fans out to the registry,
// deduplicates, enriches, filters, scores, ranks, and paginates. Degraded
// sources shrink the result set; only invalid criteria fail.
func (s *Service) Search(ctx context.Context, criteria *transport.SearchCriteria) (*transport.ProspectionResult, error) {
	if err := validator.Validate.Struct(criteria); err != nil {
		return nil, apperr.Validation("invalid criteria: " + err.Error())
	}
	if len(criteria.Codes) == 0 && !criteria.HasGeography() {
		return nil, apperr.Validation("at least one activity code or a geography filter is required")
	}

	var product domain.Product
	if criteria.Product != "" {
		parsed, err := domain.ParseProduct(criteria.Product)
		if err != nil {
			return nil, err
		}
		product = parsed
	}

	page := criteria.Page
	if page < 1 {
		page = 1
	}
	pageSize := criteria.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	expanded := expandCodes(criteria.Codes)
	if len(criteria.Codes) > 0 && len(expanded) == 0 {
		// Every supplied code was unknown; nothing can match.
		return s.emptyResult(criteria, expanded, page, pageSize), nil
	}

	log := s.log.WithContext(ctx)
	candidates := s.collectCandidates(ctx, log, criteria, expanded)

	needEnrich := product != "" || criteria.HasTechnicalFilters()
	profiles := s.enrichAll(ctx, candidates, product, needEnrich)

	policy := s.cfg.GetTechnicalFilterPolicy()
	profiles = applyTechnicalFilters(profiles, criteria, policy)

	items := make([]transport.ProspectionItem, 0, len(profiles))
	for _, profile := range profiles {
		item := transport.ProspectionItem{Profile: profile}
		if product != "" {
			result := s.scorer.Score(product, profile)
			item.Scoring = &result
		}
		items = append(items, item)
	}
	if product != "" {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Scoring.Score > items[j].Scoring.Score
		})
	}

	if criteria.WithContacts {
		s.enrichContacts(ctx, items)
	}

	total := len(items)
	usedSources := collectSources(items)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	items = items[start:end]

	return &transport.ProspectionResult{
		Results:  items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Criteria: transport.AppliedCriteria{
			Product:       criteria.Product,
			ExpandedCodes: expanded,
			Region:        criteria.Region,
			Department:    criteria.Department,
			PostalCode:    criteria.PostalCode,
			FilterPolicy:  policy,
		},
		Sources: usedSources,
	}, nil
}

// Enrich builds one full profile for an identifier, for the detail endpoint
// and the CLI.
func (s *Service) Enrich(ctx context.Context, id, product string, withContact bool) (*domain.EnrichedProfile, error) {
	opts := enrich.Options{WithContact: withContact}
	if product != "" {
		parsed, err := domain.ParseProduct(product)
		if err != nil {
			return nil, err
		}
		opts.ProductHint = parsed
	}
	return s.enricher.EnrichByIdentifier(ctx, id, opts)
}

// Suggest returns lightweight registry hits for typeahead. Upstream failures
// degrade to an empty list.
func (s *Service) Suggest(ctx context.Context, text string, limit int) ([]transport.Suggestion, error) {
	text = strings.TrimSpace(text)
	if len(text) < suggestMinQueryLen {
		return nil, apperr.Validation(fmt.Sprintf("suggestion query must be at least %d characters", suggestMinQueryLen))
	}
	if limit < 1 {
		limit = 10
	} else if limit > suggestMaxLimit {
		limit = suggestMaxLimit
	}

	candidates, err := s.registry.Search(ctx, sources.RechercheQuery{Text: text, Limit: limit})
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			return nil, err
		}
		s.log.WithContext(ctx).SourceDegraded(sources.SourceRecherche, "suggest", err)
		return nil, nil
	}

	suggestions := make([]transport.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, transport.Suggestion{
			SIREN:   c.SIREN,
			SIRET:   c.SIRET,
			Name:    c.Name,
			NAFCode: c.NAFCode,
			City:    c.Address.City,
		})
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

// FormatForExport flattens a result page into rows, one per prospect. Pure.
func FormatForExport(result *transport.ProspectionResult) []transport.ExportRow {
	rows := make([]transport.ExportRow, 0, len(result.Results))
	for _, item := range result.Results {
		profile := item.Profile
		row := transport.ExportRow{
			SIREN:        profile.SIREN,
			SIRET:        profile.SIRET,
			Name:         profile.Name,
			NAFCode:      profile.NAFCode,
			Address:      profile.Address.Line,
			PostalCode:   profile.Address.PostalCode,
			City:         profile.Address.City,
			Completeness: profile.Completeness,
			Partial:      profile.Partial,
		}
		if profile.Contact != nil {
			row.Phone = profile.Contact.Phone
			row.Email = profile.Contact.Email
		}
		if profile.Building != nil {
			if profile.Building.HeightM != nil {
				row.HeightM = formatMetric(profile.Building.HeightM)
			}
			if profile.Building.FloorAreaM2 != nil {
				row.FloorAreaM2 = formatMetric(profile.Building.FloorAreaM2)
			}
		}
		if profile.Energy != nil {
			row.EnergyClass = profile.Energy.Class
		}
		if item.Scoring != nil {
			row.Score = item.Scoring.Score
			row.Eligible = item.Scoring.Eligible
			row.Justification = strings.Join(item.Scoring.Justifications, "; ")
		}
		rows = append(rows, row)
	}
	return rows
}

func formatMetric(m *domain.Metric) string {
	if m.Estimated {
		return fmt.Sprintf("~%.0f", m.Value)
	}
	return fmt.Sprintf("%.0f", m.Value)
}

// expandCodes expands every supplied code and deduplicates, keeping registry
// order within each expansion.
func expandCodes(codes []string) []string {
	var expanded []string
	seen := map[string]bool{}
	for _, code := range codes {
		for _, full := range naf.Expand(code) {
			if !seen[full] {
				seen[full] = true
				expanded = append(expanded, full)
			}
		}
	}
	return expanded
}

// collectCandidates fans out one registry query per expanded code (or a
// single geography-only query) and deduplicates by establishment identifier.
func (s *Service) collectCandidates(ctx context.Context, log *logger.Logger, criteria *transport.SearchCriteria, expanded []string) []domain.Candidate {
	queries := make([]sources.RechercheQuery, 0, len(expanded))
	base := sources.RechercheQuery{
		Region:     criteria.Region,
		Department: criteria.Department,
		PostalCode: criteria.PostalCode,
		Limit:      maxCandidatesPerCode,
	}
	if len(expanded) == 0 {
		queries = append(queries, base)
	}
	for _, code := range expanded {
		query := base
		query.NAFCode = code
		queries = append(queries, query)
	}

	var candidates []domain.Candidate
	seen := map[string]bool{}
	for _, query := range queries {
		found, err := s.registry.Search(ctx, query)
		if err != nil {
			log.SourceDegraded(sources.SourceRecherche, "search", err)
			continue
		}
		for _, candidate := range found {
			if candidate.SIRET == "" || seen[candidate.SIRET] {
				continue
			}
			seen[candidate.SIRET] = true
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// enrichAll runs enrichment per candidate at bounded concurrency. Order is
// preserved; enrichment itself never fails.
func (s *Service) enrichAll(ctx context.Context, candidates []domain.Candidate, product domain.Product, needEnrich bool) []*domain.EnrichedProfile {
	profiles := make([]*domain.EnrichedProfile, len(candidates))

	opts := enrich.Options{ProductHint: product, IdentityOnly: !needEnrich}

	group, groupCtx := errgroup.WithContext(ctx)
	limit := s.cfg.GetMaxEnrichConcurrency()
	if limit < 1 {
		limit = 1
	}
	group.SetLimit(limit)
	for i := range candidates {
		group.Go(func() error {
			profiles[i] = s.enricher.EnrichCandidate(groupCtx, &candidates[i], opts)
			return nil
		})
	}
	group.Wait()

	return profiles
}

// applyTechnicalFilters drops profiles failing a hard threshold. Profiles
// missing a filtered field follow the configured policy: "keep" treats them
// as neutral, "drop" rejects them.
func applyTechnicalFilters(profiles []*domain.EnrichedProfile, criteria *transport.SearchCriteria, policy string) []*domain.EnrichedProfile {
	if !criteria.HasTechnicalFilters() {
		return profiles
	}
	drop := policy == "drop"

	kept := profiles[:0]
	for _, profile := range profiles {
		if passesTechnicalFilters(profile, criteria, drop) {
			kept = append(kept, profile)
		}
	}
	return kept
}

func passesTechnicalFilters(profile *domain.EnrichedProfile, criteria *transport.SearchCriteria, dropMissing bool) bool {
	building := profile.Building

	if criteria.MinHeightM != nil {
		if building == nil || building.HeightM == nil {
			if dropMissing {
				return false
			}
		} else if building.HeightM.Value < *criteria.MinHeightM {
			return false
		}
	}

	if criteria.MinAreaM2 != nil {
		if building == nil || building.FloorAreaM2 == nil {
			if dropMissing {
				return false
			}
		} else if building.FloorAreaM2.Value < *criteria.MinAreaM2 {
			return false
		}
	}

	if len(criteria.HeatingKeywords) > 0 {
		heating := ""
		if building != nil {
			heating = strings.ToLower(strings.TrimSpace(building.HeatingType + " " + building.HeatingSystem))
		}
		if heating == "" {
			if dropMissing {
				return false
			}
		} else if !containsAny(heating, criteria.HeatingKeywords) {
			return false
		}
	}

	if len(criteria.EnergyClasses) > 0 {
		class := ""
		if profile.Energy != nil {
			class = profile.Energy.Class
		}
		if class == "" {
			if dropMissing {
				return false
			}
		} else if !stringIn(class, criteria.EnergyClasses) {
			return false
		}
	}

	return true
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

func stringIn(value string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}

// enrichContacts runs the paid contact step over the top-ranked results, up
// to the configured quota.
func (s *Service) enrichContacts(ctx context.Context, items []transport.ProspectionItem) {
	budget := s.cfg.GetMaxContactEnrichments()
	if budget < 1 {
		return
	}
	for i := range items {
		if i == budget {
			break
		}
		s.enricher.EnrichContact(ctx, items[i].Profile)
	}
}

// collectSources unions the contributing sources over the whole result set,
// in first-appearance order.
func collectSources(items []transport.ProspectionItem) []string {
	var all []string
	seen := map[string]bool{}
	for _, item := range items {
		for _, source := range item.Profile.Sources {
			if !seen[source] {
				seen[source] = true
				all = append(all, source)
			}
		}
	}
	return all
}

func (s *Service) emptyResult(criteria *transport.SearchCriteria, expanded []string, page, pageSize int) *transport.ProspectionResult {
	return &transport.ProspectionResult{
		Results:  []transport.ProspectionItem{},
		Total:    0,
		Page:     page,
		PageSize: pageSize,
		Criteria: transport.AppliedCriteria{
			Product:       criteria.Product,
			ExpandedCodes: expanded,
			Region:        criteria.Region,
			Department:    criteria.Department,
			PostalCode:    criteria.PostalCode,
			FilterPolicy:  s.cfg.GetTechnicalFilterPolicy(),
		},
		Sources: []string{},
	}
}
