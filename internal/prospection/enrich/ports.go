package enrich

import (
	"context"

	"prospection_backend/internal/prospection/domain"
)

// Ports over the source adapters, narrowed to what the orchestrator calls.
// Tests substitute fakes for any subset.

// RegistryLookup is the authenticated registry (primary identity source).
type RegistryLookup interface {
	FindBySIRET(ctx context.Context, siret string) (*domain.Candidate, error)
	FindBySIREN(ctx context.Context, siren string) (*domain.Candidate, error)
}

// RegistryFallback is the free registry search used when the primary is down.
type RegistryFallback interface {
	FindBySIREN(ctx context.Context, siren string) (*domain.Candidate, error)
}

// Geocoder normalizes a free-text address.
type Geocoder interface {
	GeocodeBest(ctx context.Context, query string) (*domain.GeocodedAddress, error)
}

// BuildingResolver maps coordinates to the national building identifier.
type BuildingResolver interface {
	ResolveByCoordinates(ctx context.Context, lat, lon float64) (string, error)
}

// BuildingByID is the keyed building source, reachable by identifier or point.
type BuildingByID interface {
	ByBuildingID(ctx context.Context, buildingID string) (*domain.BuildingCharacteristics, error)
	ByCoordinates(ctx context.Context, lat, lon float64) (*domain.BuildingCharacteristics, error)
}

// BuildingByPoint is the spatial building source.
type BuildingByPoint interface {
	ByCoordinates(ctx context.Context, lat, lon float64) (*domain.BuildingCharacteristics, error)
}

// EnergySource returns the latest energy diagnostic.
type EnergySource interface {
	FindByBuildingID(ctx context.Context, buildingID string) (*domain.EnergyPerformance, error)
	FindByAddress(ctx context.Context, addressLine, postalCode string) (*domain.EnergyPerformance, error)
}

// SiteSource lists classified industrial installations.
type SiteSource interface {
	FindNearby(ctx context.Context, lat, lon float64, radiusM int) ([]domain.RegulatorySite, error)
	FindByCommune(ctx context.Context, cityCode string) ([]domain.RegulatorySite, error)
}

// ContactSource is the paid contact-enrichment provider.
type ContactSource interface {
	EnrichContact(ctx context.Context, siren string) (*domain.Contact, error)
}
