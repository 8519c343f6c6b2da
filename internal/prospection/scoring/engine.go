// Package scoring turns an enriched profile into a per-product eligibility
// score. The engine is stateless and pure: the same profile always yields the
// same result, and missing data contributes zero points rather than blocking
// or penalizing a candidate.
package scoring

import (
	"fmt"
	"strings"

	"prospection_backend/internal/prospection/domain"
)

// Factor is one scored criterion, in evaluation order. Callers display the
// list as "why this score".
type Factor struct {
	Criterion     string  `json:"criterion"`
	RawValue      string  `json:"raw_value"`
	Points        float64 `json:"points"`
	MaxPoints     float64 `json:"max_points"`
	Tier          string  `json:"tier"`
	Justification string  `json:"justification"`
}

// Result is the scoring outcome for one product line.
type Result struct {
	Product        domain.Product `json:"product"`
	Score          float64        `json:"score"`
	Eligible       bool           `json:"eligible"`
	MinScore       float64        `json:"min_score"`
	Factors        []Factor       `json:"factors"`
	Justifications []string       `json:"justifications"`
}

// Engine scores profiles against per-product rubrics. MinScores gates
// eligibility; products absent from the map use 0 (rank everything).
type Engine struct {
	minScores map[string]float64
}

// NewEngine creates a scoring engine with the configured thresholds.
func NewEngine(minScores map[string]float64) *Engine {
	return &Engine{minScores: minScores}
}

// Score evaluates the product rubric over the profile. The total is the
// clamped sum of the factor contributions, in [0,100].
func (e *Engine) Score(product domain.Product, profile *domain.EnrichedProfile) Result {
	var factors []Factor
	switch product {
	case domain.ProductDestratification:
		factors = scoreDestratification(profile)
	case domain.ProductCalorifugeage:
		factors = scoreCalorifugeage(profile)
	case domain.ProductMatelas:
		factors = scoreMatelas(profile)
	}

	total := 0.0
	justifications := make([]string, 0, len(factors))
	for _, f := range factors {
		total += f.Points
		if f.Justification != "" {
			justifications = append(justifications, f.Justification)
		}
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	min := e.minScores[string(product)]
	return Result{
		Product:        product,
		Score:          total,
		Eligible:       total >= min,
		MinScore:       min,
		Factors:        factors,
		Justifications: justifications,
	}
}

// tier is one band of a tiered criterion: at or above Threshold earns Points.
type tier struct {
	Threshold float64
	Points    float64
	Label     string
}

// tiered evaluates a descending tier table against an optional metric.
func tiered(criterion string, metric *domain.Metric, unit string, tiers []tier) Factor {
	factor := Factor{Criterion: criterion, MaxPoints: tiers[0].Points, Tier: "none"}
	if metric == nil {
		factor.RawValue = "unknown"
		return factor
	}

	quality := "measured"
	if metric.Estimated {
		quality = "estimated"
	}
	factor.RawValue = fmt.Sprintf("%.1f %s (%s)", metric.Value, unit, quality)

	for _, t := range tiers {
		if metric.Value >= t.Threshold {
			factor.Points = t.Points
			factor.Tier = t.Label
			factor.Justification = fmt.Sprintf("%s %.0f %s (%s)", criterion, metric.Value, unit, t.Label)
			break
		}
	}
	return factor
}

// keywordMatch awards full points when any needle appears in the haystack.
func keywordMatch(criterion, value string, needles []string, points float64) Factor {
	factor := Factor{Criterion: criterion, MaxPoints: points, Tier: "none", RawValue: value}
	if value == "" {
		factor.RawValue = "unknown"
		return factor
	}
	lower := strings.ToLower(value)
	for _, needle := range needles {
		if strings.Contains(lower, needle) {
			factor.Points = points
			factor.Tier = "match"
			factor.Justification = fmt.Sprintf("%s matches %q", criterion, needle)
			return factor
		}
	}
	return factor
}

// nafPertinence awards full points when the activity code starts with one of
// the product's pertinent prefixes.
func nafPertinence(nafCode string, prefixes []string, points float64) Factor {
	factor := Factor{Criterion: "activity code", MaxPoints: points, Tier: "none", RawValue: nafCode}
	if nafCode == "" {
		factor.RawValue = "unknown"
		return factor
	}
	digits := strings.ReplaceAll(nafCode, ".", "")
	for _, prefix := range prefixes {
		if strings.HasPrefix(digits, strings.ReplaceAll(prefix, ".", "")) {
			factor.Points = points
			factor.Tier = "pertinent"
			factor.Justification = fmt.Sprintf("activity %s is a pertinent sector", nafCode)
			return factor
		}
	}
	return factor
}

// energyClassBonus awards points to poor energy classes, where retrofit
// funding is easiest to justify.
func energyClassBonus(energy *domain.EnergyPerformance, poorPoints, midPoints float64) Factor {
	factor := Factor{Criterion: "energy class", MaxPoints: poorPoints, Tier: "none", RawValue: "unknown"}
	if energy == nil || energy.Class == "" {
		return factor
	}
	factor.RawValue = energy.Class
	switch energy.Class {
	case "E", "F", "G":
		factor.Points = poorPoints
		factor.Tier = "poor"
		factor.Justification = fmt.Sprintf("energy class %s, high retrofit potential", energy.Class)
	case "C", "D":
		factor.Points = midPoints
		factor.Tier = "middling"
		factor.Justification = fmt.Sprintf("energy class %s, some retrofit potential", energy.Class)
	}
	return factor
}

func buildingOf(p *domain.EnrichedProfile) *domain.BuildingCharacteristics {
	if p == nil {
		return nil
	}
	return p.Building
}

// Destratification fans pay off in tall, large, air-heated halls: logistics,
// industry, retail warehouses.
var destratificationSectors = []string{
	"52.10", "52.24", // warehousing, handling
	"45.1", "45.3", // vehicle trade
	"46", "47.52", "47.8", // wholesale, building-material retail
	"49.41",                // road freight
	"10", "16", "22", "25", // manufacturing with halls
}

func scoreDestratification(p *domain.EnrichedProfile) []Factor {
	building := buildingOf(p)

	var height, area *domain.Metric
	var heating string
	if building != nil {
		height = building.HeightM
		area = building.FloorAreaM2
		heating = strings.TrimSpace(building.HeatingType + " " + building.HeatingSystem)
	}

	factors := []Factor{
		tiered("ceiling height", height, "m", []tier{
			{10, 30, "very tall"},
			{7, 22, "tall"},
			{5, 12, "moderate"},
		}),
		tiered("floor area", area, "m²", []tier{
			{2000, 25, "very large"},
			{1000, 18, "large"},
			{500, 10, "medium"},
		}),
		keywordMatch("heating type", heating, []string{"air chaud", "aérotherme", "aerotherme", "air pulsé", "air pulse"}, 20),
		nafPertinence(p.NAFCode, destratificationSectors, 15),
		energyClassBonus(p.Energy, 10, 5),
	}
	return factors
}

// Calorifugeage targets collective heating installations with long pipe runs:
// residential landlords, hotels, hospitals, schools.
var calorifugeageSectors = []string{
	"68.20", "68.32", // property letting and management
	"55.10",          // hotels
	"86", "87",       // health and care
	"85",             // education
}

func scoreCalorifugeage(p *domain.EnrichedProfile) []Factor {
	building := buildingOf(p)

	var area *domain.Metric
	var system, carrier string
	var dwellings *domain.Metric
	if building != nil {
		area = building.FloorAreaM2
		system = strings.TrimSpace(building.HeatingType + " " + building.HeatingSystem)
		carrier = building.EnergyCarrier
		if building.DwellingCount != nil {
			dwellings = domain.MetricOf(float64(*building.DwellingCount), false)
		}
	}

	consumption := Factor{Criterion: "energy consumption", MaxPoints: 5, Tier: "none", RawValue: "unknown"}
	if p.Energy != nil && p.Energy.ConsumptionKWhM2 != nil {
		consumption.RawValue = fmt.Sprintf("%.0f kWh/m²/an", *p.Energy.ConsumptionKWhM2)
		if *p.Energy.ConsumptionKWhM2 >= 200 {
			consumption.Points = 5
			consumption.Tier = "high"
			consumption.Justification = fmt.Sprintf("consumption %.0f kWh/m²/an above the retrofit threshold", *p.Energy.ConsumptionKWhM2)
		}
	}

	factors := []Factor{
		keywordMatch("heating installation", system, []string{"collectif", "chaufferie", "chaudière", "chaudiere", "réseau de chaleur", "reseau de chaleur"}, 30),
		tiered("floor area", area, "m²", []tier{
			{3000, 20, "very large"},
			{1500, 14, "large"},
			{600, 8, "medium"},
		}),
		keywordMatch("energy carrier", carrier, []string{"gaz", "fioul", "réseau", "reseau"}, 15),
		tiered("dwelling count", dwellings, "logements", []tier{
			{50, 20, "very large stock"},
			{20, 14, "large stock"},
			{10, 8, "medium stock"},
		}),
		nafPertinence(p.NAFCode, calorifugeageSectors, 10),
		consumption,
	}
	return factors
}

// Matelas targets industrial steam and hot-fluid networks, dominated by the
// presence of a classified installation at the address.
var matelasSectors = []string{
	"10", "11", "17", "19", "20", "21", "22", "23", "24", "25", // process industry
	"35.30", // steam and air conditioning supply
}

func scoreMatelas(p *domain.EnrichedProfile) []Factor {
	sitePresence := Factor{Criterion: "classified installation", MaxPoints: 35, Tier: "none", RawValue: "none"}
	best := 0.0
	for _, site := range p.Sites {
		if site.Pertinence > best {
			best = site.Pertinence
			sitePresence.RawValue = fmt.Sprintf("%s (pertinence %.0f)", site.Name, site.Pertinence)
		}
	}
	if best > 0 {
		sitePresence.Points = best / 100 * 35
		switch {
		case best >= 70:
			sitePresence.Tier = "steam-heavy"
		case best >= 40:
			sitePresence.Tier = "process heat"
		default:
			sitePresence.Tier = "generic"
		}
		sitePresence.Justification = fmt.Sprintf("classified installation on site, pertinence %.0f/100", best)
	}

	insulation := Factor{Criterion: "thermal deficiency", MaxPoints: 20, Tier: "none", RawValue: "unknown"}
	building := buildingOf(p)
	switch {
	case p.Energy != nil && (p.Energy.Class == "F" || p.Energy.Class == "G"):
		insulation.RawValue = "class " + p.Energy.Class
		insulation.Points = 20
		insulation.Tier = "severe"
		insulation.Justification = fmt.Sprintf("energy class %s indicates uninsulated networks", p.Energy.Class)
	case p.Energy != nil && (p.Energy.Class == "D" || p.Energy.Class == "E"):
		insulation.RawValue = "class " + p.Energy.Class
		insulation.Points = 10
		insulation.Tier = "moderate"
		insulation.Justification = fmt.Sprintf("energy class %s indicates partial insulation", p.Energy.Class)
	case building != nil && building.InsulationScore != nil && building.InsulationScore.Value < 0.4:
		insulation.RawValue = fmt.Sprintf("insulation score %.2f", building.InsulationScore.Value)
		insulation.Points = 15
		insulation.Tier = "deficient"
		insulation.Justification = "building insulation rated deficient"
	}

	var area *domain.Metric
	if building != nil {
		area = building.FloorAreaM2
	}

	renovation := Factor{Criterion: "renovation potential", MaxPoints: 10, Tier: "none", RawValue: "unknown"}
	switch {
	case p.Energy != nil && p.Energy.ConsumptionKWhM2 != nil && *p.Energy.ConsumptionKWhM2 >= 300:
		renovation.RawValue = fmt.Sprintf("%.0f kWh/m²/an", *p.Energy.ConsumptionKWhM2)
		renovation.Points = 10
		renovation.Tier = "high"
		renovation.Justification = "very high consumption, quick payback on valve insulation"
	case building != nil && building.ConstructionYear != nil && *building.ConstructionYear < 1990:
		renovation.RawValue = fmt.Sprintf("built %d", *building.ConstructionYear)
		renovation.Points = 5
		renovation.Tier = "dated"
		renovation.Justification = fmt.Sprintf("building from %d, pre-insulation-standard era", *building.ConstructionYear)
	}

	factors := []Factor{
		sitePresence,
		insulation,
		tiered("floor area", area, "m²", []tier{
			{5000, 15, "very large"},
			{2000, 10, "large"},
			{800, 5, "medium"},
		}),
		nafPertinence(p.NAFCode, matelasSectors, 20),
		renovation,
	}
	return factors
}
