// Package enrich assembles one EnrichedProfile per establishment by fanning
// out to the source adapters. Each step is failure-isolated: a step that
// errors degrades to absent data, flags the profile partial, and never
// discards what earlier steps built. Only a malformed identifier returns an
// error.
package enrich

import (
	"context"
	"strings"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/internal/prospection/sources"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/logger"
)

// siteRadiusM bounds the classified-installation lookup around an address.
const siteRadiusM = 1000

// Options tunes one enrichment call.
type Options struct {
	// ProductHint selects optional product-specific steps, such as the
	// classified-site lookup for the valve-insulation product.
	ProductHint domain.Product
	// WithContact requests the paid contact source; honored only when the
	// provider is configured.
	WithContact bool
	// IdentityOnly skips every step past the registry identity, for searches
	// that need neither technical data nor scoring.
	IdentityOnly bool
}

// Orchestrator fuses the source adapters into enriched profiles.
type Orchestrator struct {
	registry RegistryLookup
	fallback RegistryFallback
	geocoder Geocoder
	resolver BuildingResolver
	bdnb     BuildingByID
	bdtopo   BuildingByPoint
	energy   EnergySource
	siteSrc  SiteSource
	contacts ContactSource

	enabled map[string]bool
	log     *logger.Logger
}

// New creates the orchestrator. Nil adapters and sources absent from enabled
// are skipped; an empty enabled set enables every wired source.
func New(
	registry RegistryLookup,
	fallback RegistryFallback,
	geocoder Geocoder,
	resolver BuildingResolver,
	bdnb BuildingByID,
	bdtopo BuildingByPoint,
	energy EnergySource,
	siteSrc SiteSource,
	contacts ContactSource,
	enabled map[string]bool,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		fallback: fallback,
		geocoder: geocoder,
		resolver: resolver,
		bdnb:     bdnb,
		bdtopo:   bdtopo,
		energy:   energy,
		siteSrc:  siteSrc,
		contacts: contacts,
		enabled:  enabled,
		log:      log,
	}
}

func (o *Orchestrator) sourceEnabled(name string) bool {
	if len(o.enabled) == 0 {
		return true
	}
	return o.enabled[name]
}

// EnrichByIdentifier builds a profile for a 9-digit SIREN or 14-digit SIRET.
// It never fails on degraded upstream data; only a malformed identifier
// returns an error.
func (o *Orchestrator) EnrichByIdentifier(ctx context.Context, id string, opts Options) (*domain.EnrichedProfile, error) {
	id = strings.TrimSpace(id)
	var siren, siret string
	switch len(id) {
	case 9:
		if err := domain.ValidateSIREN(id); err != nil {
			return nil, err
		}
		siren = id
	case 14:
		if err := domain.ValidateSIRET(id); err != nil {
			return nil, err
		}
		siret = id
		siren = domain.SIRENOf(id)
	default:
		return nil, apperr.Validation("identifier must be a 9-digit siren or 14-digit siret")
	}

	log := o.log.WithContext(ctx)
	profile := &domain.EnrichedProfile{SIREN: siren, SIRET: siret}

	candidate := o.identify(ctx, log, siren, siret, profile)
	if candidate != nil {
		o.FromCandidate(profile, candidate)
	}

	coords := o.geocode(ctx, log, profile, candidate)
	buildingID := o.building(ctx, log, profile, coords)
	o.energyDiagnostic(ctx, log, profile, buildingID)

	if opts.ProductHint == domain.ProductMatelas {
		o.regulatorySites(ctx, log, profile, coords)
	}
	if opts.WithContact {
		o.EnrichContact(ctx, profile)
	}

	profile.Completeness = domain.ComputeCompleteness(profile)
	return profile, nil
}

// FromCandidate copies the registry identity of a search hit into a profile.
func (o *Orchestrator) FromCandidate(profile *domain.EnrichedProfile, candidate *domain.Candidate) {
	if candidate.SIREN != "" {
		profile.SIREN = candidate.SIREN
	}
	if candidate.SIRET != "" {
		profile.SIRET = candidate.SIRET
	}
	profile.Name = candidate.Name
	profile.NAFCode = candidate.NAFCode
	profile.Address = candidate.Address
}

// EnrichCandidate runs the non-identity steps for a candidate that already
// came out of the registry search, avoiding a second registry call.
func (o *Orchestrator) EnrichCandidate(ctx context.Context, candidate *domain.Candidate, opts Options) *domain.EnrichedProfile {
	log := o.log.WithContext(ctx)

	profile := &domain.EnrichedProfile{}
	o.FromCandidate(profile, candidate)
	profile.AddSource(sources.SourceRecherche)

	if opts.IdentityOnly {
		profile.Completeness = domain.ComputeCompleteness(profile)
		return profile
	}

	coords := o.geocode(ctx, log, profile, candidate)
	buildingID := o.building(ctx, log, profile, coords)
	o.energyDiagnostic(ctx, log, profile, buildingID)

	if opts.ProductHint == domain.ProductMatelas {
		o.regulatorySites(ctx, log, profile, coords)
	}
	if opts.WithContact {
		o.EnrichContact(ctx, profile)
	}

	profile.Completeness = domain.ComputeCompleteness(profile)
	return profile
}

// EnrichContact runs only the paid contact step, used by the search service
// to stay within the provider quota after ranking.
func (o *Orchestrator) EnrichContact(ctx context.Context, profile *domain.EnrichedProfile) {
	if o.contacts == nil || !o.sourceEnabled(sources.SourcePappers) {
		return
	}
	if profile.Contact != nil || profile.SIREN == "" {
		return
	}
	contact, err := o.contacts.EnrichContact(ctx, profile.SIREN)
	if err != nil {
		degrade(o.log.WithContext(ctx), profile, sources.SourcePappers, "contact", err)
		return
	}
	if contact != nil {
		profile.Contact = contact
		profile.AddSource(sources.SourcePappers)
		profile.Completeness = domain.ComputeCompleteness(profile)
	}
}

// identify resolves the registry identity: the authenticated registry first,
// the free search as fallback, a partial profile when both fail.
func (o *Orchestrator) identify(ctx context.Context, log *logger.Logger, siren, siret string, profile *domain.EnrichedProfile) *domain.Candidate {
	if o.registry != nil && o.sourceEnabled(sources.SourceSirene) {
		var candidate *domain.Candidate
		var err error
		if siret != "" {
			candidate, err = o.registry.FindBySIRET(ctx, siret)
		} else {
			candidate, err = o.registry.FindBySIREN(ctx, siren)
		}
		if err != nil {
			log.SourceDegraded(sources.SourceSirene, "identity", err)
		} else if candidate != nil {
			profile.AddSource(sources.SourceSirene)
			return candidate
		}
	}

	if o.fallback != nil && o.sourceEnabled(sources.SourceRecherche) {
		candidate, err := o.fallback.FindBySIREN(ctx, siren)
		if err != nil {
			log.SourceDegraded(sources.SourceRecherche, "identity", err)
		} else if candidate != nil {
			profile.AddSource(sources.SourceRecherche)
			return candidate
		}
	}

	profile.Partial = true
	profile.Warning = "identity lookup failed; profile built from the identifier alone"
	return nil
}

// degrade records a failed source call: the failure is logged, the step's
// data stays absent, and the profile is flagged partial so callers can tell
// it may be incomplete.
func degrade(log *logger.Logger, profile *domain.EnrichedProfile, source, step string, err error) {
	log.SourceDegraded(source, step, err)
	profile.Partial = true
	if profile.Warning == "" {
		profile.Warning = "one or more sources failed; enrichment data may be missing"
	}
}

type coordinates struct {
	lat, lon float64
	cityCode string
	ok       bool
}

// geocode normalizes the address and picks the best coordinates available:
// a confident geocode first, the registry's own coordinates otherwise.
func (o *Orchestrator) geocode(ctx context.Context, log *logger.Logger, profile *domain.EnrichedProfile, candidate *domain.Candidate) coordinates {
	var coords coordinates
	if candidate != nil && candidate.Latitude != nil && candidate.Longitude != nil {
		coords = coordinates{lat: *candidate.Latitude, lon: *candidate.Longitude, ok: true}
	}

	if o.geocoder == nil || !o.sourceEnabled(sources.SourceBAN) {
		return coords
	}
	query := strings.TrimSpace(strings.Join([]string{profile.Address.Line, profile.Address.PostalCode, profile.Address.City}, " "))
	if query == "" {
		return coords
	}

	geocoded, err := o.geocoder.GeocodeBest(ctx, query)
	if err != nil {
		degrade(log, profile, sources.SourceBAN, "geocode", err)
		return coords
	}
	if geocoded == nil {
		return coords
	}

	profile.Address.Normalized = geocoded
	profile.AddSource(sources.SourceBAN)
	if !geocoded.LowConfidence() {
		coords = coordinates{lat: geocoded.Latitude, lon: geocoded.Longitude, cityCode: geocoded.CityCode, ok: true}
	} else {
		coords.cityCode = geocoded.CityCode
	}
	return coords
}

// building queries both building sources and fuses their records. It returns
// the national building identifier when one resolved.
func (o *Orchestrator) building(ctx context.Context, log *logger.Logger, profile *domain.EnrichedProfile, coords coordinates) string {
	if !coords.ok {
		return ""
	}

	var buildingID string
	if o.resolver != nil && o.sourceEnabled(sources.SourceRNB) {
		id, err := o.resolver.ResolveByCoordinates(ctx, coords.lat, coords.lon)
		if err != nil {
			degrade(log, profile, sources.SourceRNB, "resolve", err)
		} else if id != "" {
			buildingID = id
			profile.AddSource(sources.SourceRNB)
		}
	}

	var primary, secondary *domain.BuildingCharacteristics
	if o.bdnb != nil && o.sourceEnabled(sources.SourceBDNB) {
		var err error
		if buildingID != "" {
			primary, err = o.bdnb.ByBuildingID(ctx, buildingID)
		} else {
			primary, err = o.bdnb.ByCoordinates(ctx, coords.lat, coords.lon)
		}
		if err != nil {
			degrade(log, profile, sources.SourceBDNB, "building", err)
			primary = nil
		}
	}
	if o.bdtopo != nil && o.sourceEnabled(sources.SourceBDTopo) {
		var err error
		secondary, err = o.bdtopo.ByCoordinates(ctx, coords.lat, coords.lon)
		if err != nil {
			degrade(log, profile, sources.SourceBDTopo, "building", err)
			secondary = nil
		}
	}

	merged := mergeBuildings(primary, secondary)
	if merged != nil {
		profile.Building = merged
		if primary != nil {
			profile.AddSource(sources.SourceBDNB)
		}
		if secondary != nil {
			profile.AddSource(sources.SourceBDTopo)
		}
		if buildingID != "" && merged.BuildingID == "" {
			merged.BuildingID = buildingID
		}
		if buildingID == "" {
			buildingID = merged.BuildingID
		}
	}
	return buildingID
}

// mergeBuildings fuses two possibly disagreeing records: the more
// field-complete one wins, recency breaks ties, and the loser fills whatever
// the winner left blank.
func mergeBuildings(a, b *domain.BuildingCharacteristics) *domain.BuildingCharacteristics {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	winner, loser := a, b
	if b.FieldCount() > a.FieldCount() {
		winner, loser = b, a
	} else if b.FieldCount() == a.FieldCount() && newerThan(b, a) {
		winner, loser = b, a
	}

	merged := *winner
	if merged.BuildingID == "" {
		merged.BuildingID = loser.BuildingID
	}
	if merged.HeightM == nil {
		merged.HeightM = loser.HeightM
	}
	if merged.Floors == nil {
		merged.Floors = loser.Floors
	}
	if merged.FloorAreaM2 == nil {
		merged.FloorAreaM2 = loser.FloorAreaM2
	}
	if merged.InsulationScore == nil {
		merged.InsulationScore = loser.InsulationScore
	}
	if merged.HeatingType == "" {
		merged.HeatingType = loser.HeatingType
	}
	if merged.HeatingSystem == "" {
		merged.HeatingSystem = loser.HeatingSystem
	}
	if merged.EnergyCarrier == "" {
		merged.EnergyCarrier = loser.EnergyCarrier
	}
	if merged.DwellingCount == nil {
		merged.DwellingCount = loser.DwellingCount
	}
	if merged.ConstructionYear == nil {
		merged.ConstructionYear = loser.ConstructionYear
	}
	return &merged
}

func newerThan(a, b *domain.BuildingCharacteristics) bool {
	if a.UpdatedAt == nil {
		return false
	}
	if b.UpdatedAt == nil {
		return true
	}
	return a.UpdatedAt.After(*b.UpdatedAt)
}

// energyDiagnostic looks the diagnostic up by building identifier first and
// falls back to the address.
func (o *Orchestrator) energyDiagnostic(ctx context.Context, log *logger.Logger, profile *domain.EnrichedProfile, buildingID string) {
	if o.energy == nil || !o.sourceEnabled(sources.SourceDPE) {
		return
	}

	var energy *domain.EnergyPerformance
	var err error
	if buildingID != "" {
		energy, err = o.energy.FindByBuildingID(ctx, buildingID)
		if err != nil {
			degrade(log, profile, sources.SourceDPE, "diagnostic", err)
			energy = nil
		}
	}
	if energy == nil {
		energy, err = o.energy.FindByAddress(ctx, profile.Address.Line, profile.Address.PostalCode)
		if err != nil {
			degrade(log, profile, sources.SourceDPE, "diagnostic", err)
			return
		}
	}
	if energy != nil {
		profile.Energy = energy
		profile.AddSource(sources.SourceDPE)
	}
}

// regulatorySites lists classified installations around the address, by
// coordinates when confident ones exist, by commune otherwise.
func (o *Orchestrator) regulatorySites(ctx context.Context, log *logger.Logger, profile *domain.EnrichedProfile, coords coordinates) {
	if o.siteSrc == nil || !o.sourceEnabled(sources.SourceGeorisques) {
		return
	}

	var sites []domain.RegulatorySite
	var err error
	if coords.ok {
		sites, err = o.siteSrc.FindNearby(ctx, coords.lat, coords.lon, siteRadiusM)
	} else if coords.cityCode != "" {
		sites, err = o.siteSrc.FindByCommune(ctx, coords.cityCode)
	} else {
		return
	}
	if err != nil {
		degrade(log, profile, sources.SourceGeorisques, "sites", err)
		return
	}
	if len(sites) > 0 {
		profile.Sites = sites
		profile.AddSource(sources.SourceGeorisques)
	}
}
