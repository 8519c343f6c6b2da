// Package transport defines the request and response shapes of the
// prospection API.
package transport

import (
	"prospection_backend/internal/prospection/domain"
	"prospection_backend/internal/prospection/scoring"
)

// SearchCriteria is the inbound search request. At least one of Codes or a
// geography filter must be present; the service rejects anything else before
// the pipeline runs.
type SearchCriteria struct {
	Product string   `json:"product" validate:"omitempty,oneof=destratification calorifugeage matelas"`
	Codes   []string `json:"codes" validate:"omitempty,dive,min=2,max=7"`

	Region     string `json:"region" validate:"omitempty,max=40"`
	Department string `json:"department" validate:"omitempty,min=2,max=3"`
	PostalCode string `json:"postal_code" validate:"omitempty,len=5,numeric"`

	MinHeightM      *float64 `json:"min_height_m" validate:"omitempty,gte=0"`
	MinAreaM2       *float64 `json:"min_area_m2" validate:"omitempty,gte=0"`
	HeatingKeywords []string `json:"heating_keywords" validate:"omitempty,dive,min=2"`
	EnergyClasses   []string `json:"energy_classes" validate:"omitempty,dive,oneof=A B C D E F G"`

	Page         int  `json:"page" validate:"omitempty,gte=1"`
	PageSize     int  `json:"page_size" validate:"omitempty,gte=1,lte=100"`
	WithContacts bool `json:"with_contacts"`
}

// HasGeography reports whether any geography filter is set.
func (c *SearchCriteria) HasGeography() bool {
	return c.Region != "" || c.Department != "" || c.PostalCode != ""
}

// HasTechnicalFilters reports whether any hard technical threshold is set.
func (c *SearchCriteria) HasTechnicalFilters() bool {
	return c.MinHeightM != nil || c.MinAreaM2 != nil ||
		len(c.HeatingKeywords) > 0 || len(c.EnergyClasses) > 0
}

// ProspectionItem pairs one enriched profile with its score.
type ProspectionItem struct {
	Profile *domain.EnrichedProfile `json:"profile"`
	Scoring *scoring.Result         `json:"scoring,omitempty"`
}

// AppliedCriteria is the criteria snapshot echoed back with each result set.
type AppliedCriteria struct {
	Product       string   `json:"product,omitempty"`
	ExpandedCodes []string `json:"expanded_codes,omitempty"`
	Region        string   `json:"region,omitempty"`
	Department    string   `json:"department,omitempty"`
	PostalCode    string   `json:"postal_code,omitempty"`
	FilterPolicy  string   `json:"filter_policy,omitempty"`
}

// ProspectionResult is the ranked, paginated search outcome.
type ProspectionResult struct {
	Results  []ProspectionItem `json:"results"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Criteria AppliedCriteria   `json:"criteria"`
	Sources  []string          `json:"sources"`
}

// Suggestion is a lightweight registry hit for typeahead.
type Suggestion struct {
	SIREN   string `json:"siren"`
	SIRET   string `json:"siret"`
	Name    string `json:"name"`
	NAFCode string `json:"naf_code"`
	City    string `json:"city"`
}

// ExportRow is one flat line of an export, decoupled from scoring internals.
type ExportRow struct {
	SIREN         string  `json:"siren"`
	SIRET         string  `json:"siret"`
	Name          string  `json:"name"`
	NAFCode       string  `json:"naf_code"`
	Address       string  `json:"address"`
	PostalCode    string  `json:"postal_code"`
	City          string  `json:"city"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	HeightM       string  `json:"height_m"`
	FloorAreaM2   string  `json:"floor_area_m2"`
	EnergyClass   string  `json:"energy_class"`
	Score         float64 `json:"score"`
	Eligible      bool    `json:"eligible"`
	Justification string  `json:"justification"`
	Completeness  int     `json:"completeness"`
	Partial       bool    `json:"partial"`
}
