package domain

// Fixed completeness weights. They sum to 100 so the score reads directly as
// a percentage of enrichment fields populated.
const (
	weightName      = 15
	weightAddress   = 15
	weightNAF       = 10
	weightPhone     = 10
	weightEmail     = 10
	weightBuilding  = 15
	weightEnergy    = 15
	weightTechnical = 10
)

// ComputeCompleteness scores how much of the profile was populated, 0-100.
// The technical weight requires the derived fields scoring depends on most:
// a usable height and floor area.
func ComputeCompleteness(p *EnrichedProfile) int {
	score := 0

	if p.Name != "" {
		score += weightName
	}
	if p.Address.Line != "" || p.Address.PostalCode != "" {
		score += weightAddress
	}
	if p.NAFCode != "" {
		score += weightNAF
	}
	if p.Contact != nil && p.Contact.Phone != "" {
		score += weightPhone
	}
	if p.Contact != nil && p.Contact.Email != "" {
		score += weightEmail
	}
	if p.Building != nil && p.Building.FieldCount() > 0 {
		score += weightBuilding
	}
	if p.Energy != nil && p.Energy.Class != "" {
		score += weightEnergy
	}
	if p.Building != nil && p.Building.HeightM != nil && p.Building.FloorAreaM2 != nil {
		score += weightTechnical
	}

	return score
}
