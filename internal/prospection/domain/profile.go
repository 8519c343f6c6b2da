// Package domain holds the shared schema every source adapter normalizes into
// and the aggregate profile the orchestrator assembles. Provider field names
// never leak past the adapters into these types.
package domain

import (
	"encoding/json"
	"time"

	"prospection_backend/platform/apperr"
)

// Product identifies one of the energy-retrofit product lines.
type Product string

const (
	// ProductDestratification covers air destratification fans; height-sensitive.
	ProductDestratification Product = "destratification"
	// ProductCalorifugeage covers pipe insulation for collective heating.
	ProductCalorifugeage Product = "calorifugeage"
	// ProductMatelas covers insulating mattresses for industrial valves.
	ProductMatelas Product = "matelas"
)

// KnownProducts lists every product line in display order.
var KnownProducts = []Product{ProductDestratification, ProductCalorifugeage, ProductMatelas}

// ParseProduct validates a product name.
func ParseProduct(value string) (Product, error) {
	for _, p := range KnownProducts {
		if string(p) == value {
			return p, nil
		}
	}
	return "", apperr.Validation("unknown product type: " + value)
}

// ValidateSIREN checks the 9-digit registry identifier format.
func ValidateSIREN(siren string) error {
	if !isDigits(siren, 9) {
		return apperr.Validation("siren must be 9 digits")
	}
	return nil
}

// ValidateSIRET checks the 14-digit establishment identifier format.
func ValidateSIRET(siret string) error {
	if !isDigits(siret, 14) {
		return apperr.Validation("siret must be 14 digits")
	}
	return nil
}

// SIRENOf extracts the 9-digit registry identifier from an establishment id.
func SIRENOf(siret string) string {
	if len(siret) < 9 {
		return siret
	}
	return siret[:9]
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GeocodedAddress is the normalized form of an address, produced by the
// geocoding source. Score below 0.4 is low confidence.
type GeocodedAddress struct {
	Label      string  `json:"label"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Score      float64 `json:"score"`
	CityCode   string  `json:"city_code"`
	PostalCode string  `json:"postal_code"`
	City       string  `json:"city"`
	Context    string  `json:"context"`
}

// LowConfidence reports whether the geocode should not be trusted for
// coordinate-based lookups.
func (g *GeocodedAddress) LowConfidence() bool {
	return g.Score < 0.4
}

// Address is the structured postal address of an establishment. The raw
// registry fields are always present; Normalized is set only when geocoding
// succeeded.
type Address struct {
	Line       string           `json:"line"`
	PostalCode string           `json:"postal_code"`
	City       string           `json:"city"`
	Normalized *GeocodedAddress `json:"normalized,omitempty"`
}

// Department returns the two-digit department prefix of the postal code.
func (a *Address) Department() string {
	if len(a.PostalCode) < 2 {
		return ""
	}
	return a.PostalCode[:2]
}

// Metric is a numeric building attribute with its measurement quality.
type Metric struct {
	Value     float64 `json:"value"`
	Estimated bool    `json:"estimated"`
}

// MetricOf builds a measured or estimated metric pointer.
func MetricOf(value float64, estimated bool) *Metric {
	return &Metric{Value: value, Estimated: estimated}
}

// BuildingCharacteristics is the normalized building record. The two building
// sources may disagree; precedence is resolved by the orchestrator.
type BuildingCharacteristics struct {
	BuildingID       string          `json:"building_id,omitempty"`
	HeightM          *Metric         `json:"height_m,omitempty"`
	Floors           *int            `json:"floors,omitempty"`
	FloorAreaM2      *Metric         `json:"floor_area_m2,omitempty"`
	InsulationScore  *Metric         `json:"insulation_score,omitempty"`
	HeatingType      string          `json:"heating_type,omitempty"`
	HeatingSystem    string          `json:"heating_system,omitempty"`
	EnergyCarrier    string          `json:"energy_carrier,omitempty"`
	DwellingCount    *int            `json:"dwelling_count,omitempty"`
	ConstructionYear *int            `json:"construction_year,omitempty"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// FieldCount counts populated fields, used to pick the more complete of two
// disagreeing building records.
func (b *BuildingCharacteristics) FieldCount() int {
	if b == nil {
		return 0
	}
	count := 0
	if b.HeightM != nil {
		count++
	}
	if b.Floors != nil {
		count++
	}
	if b.FloorAreaM2 != nil {
		count++
	}
	if b.InsulationScore != nil {
		count++
	}
	if b.HeatingType != "" {
		count++
	}
	if b.HeatingSystem != "" {
		count++
	}
	if b.EnergyCarrier != "" {
		count++
	}
	if b.DwellingCount != nil {
		count++
	}
	if b.ConstructionYear != nil {
		count++
	}
	return count
}

// EnergyPerformance is the normalized energy-diagnostic record.
type EnergyPerformance struct {
	Class              string          `json:"class"`
	ConsumptionKWhM2   *float64        `json:"consumption_kwh_m2,omitempty"`
	GESClass           string          `json:"ges_class,omitempty"`
	IssuedAt           *time.Time      `json:"issued_at,omitempty"`
	Raw                json.RawMessage `json:"raw,omitempty"`
}

// RegulatorySite is one classified industrial installation near an address.
type RegulatorySite struct {
	Name       string          `json:"name"`
	Regime     string          `json:"regime"`
	Status     string          `json:"status"`
	Activity   string          `json:"activity"`
	DistanceM  *float64        `json:"distance_m,omitempty"`
	Pertinence float64         `json:"pertinence"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// Contact is the optional paid contact-enrichment record.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Officer string `json:"officer,omitempty"`
}

// Candidate is one establishment returned by the registry search, before
// enrichment.
type Candidate struct {
	SIREN     string          `json:"siren"`
	SIRET     string          `json:"siret"`
	Name      string          `json:"name"`
	NAFCode   string          `json:"naf_code"`
	Address   Address         `json:"address"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	Open      bool            `json:"open"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// EnrichedProfile is the aggregate built fresh for each enrichment call. It is
// never persisted; only the underlying adapter responses are cached.
type EnrichedProfile struct {
	SIREN   string `json:"siren"`
	SIRET   string `json:"siret"`
	Name    string `json:"name,omitempty"`
	NAFCode string `json:"naf_code,omitempty"`

	Address  Address                  `json:"address"`
	Building *BuildingCharacteristics `json:"building,omitempty"`
	Energy   *EnergyPerformance       `json:"energy,omitempty"`
	Sites    []RegulatorySite         `json:"sites,omitempty"`
	Contact  *Contact                 `json:"contact,omitempty"`

	Sources      []string `json:"sources"`
	Completeness int      `json:"completeness"`
	Partial      bool     `json:"partial"`
	Warning      string   `json:"warning,omitempty"`
}

// AddSource appends a contributing source, keeping first-contribution order.
func (p *EnrichedProfile) AddSource(name string) {
	for _, existing := range p.Sources {
		if existing == name {
			return
		}
	}
	p.Sources = append(p.Sources, name)
}

// Coordinates returns the best known coordinates: the normalized address when
// geocoding succeeded, the registry coordinates otherwise.
func (p *EnrichedProfile) Coordinates() (lat, lon float64, ok bool) {
	if p.Address.Normalized != nil {
		return p.Address.Normalized.Latitude, p.Address.Normalized.Longitude, true
	}
	return 0, 0, false
}
