// Package prospection wires the prospection pipeline: cache, rate limiter,
// the nine source adapters, the enrichment orchestrator, the scoring engine,
// the search service, and the HTTP handler.
package prospection

import (
	"time"

	"prospection_backend/internal/prospection/enrich"
	"prospection_backend/internal/prospection/handler"
	"prospection_backend/internal/prospection/scoring"
	"prospection_backend/internal/prospection/service"
	"prospection_backend/internal/prospection/sources"
	"prospection_backend/platform/cache"
	"prospection_backend/platform/config"
	"prospection_backend/platform/logger"
	"prospection_backend/platform/ratelimit"
)

// Cache TTLs per source. Registry identities move slowly, building data
// almost never.
const (
	ttlRecherche  = 24 * time.Hour
	ttlSirene     = 7 * 24 * time.Hour
	ttlBAN        = 30 * 24 * time.Hour
	ttlBDNB       = 90 * 24 * time.Hour
	ttlBDTopo     = 90 * 24 * time.Hour
	ttlRNB        = 90 * 24 * time.Hour
	ttlDPE        = 30 * 24 * time.Hour
	ttlGeorisques = 30 * 24 * time.Hour
	ttlPappers    = 90 * 24 * time.Hour
)

// Module is the assembled prospection subsystem.
type Module struct {
	Service *service.Service
	Handler *handler.Handler

	Orchestrator *enrich.Orchestrator
	Recherche    *sources.RechercheAdapter
}

// New assembles the module. The cache store is injected so the composition
// root can pick Redis or the in-memory fallback.
func New(cfg *config.Config, store cache.Store, log *logger.Logger) *Module {
	limiter := ratelimit.New(sources.DefaultBudgets(), log)
	deps := sources.Deps{
		Cache:   store,
		Limiter: limiter,
		Log:     log,
		Timeout: cfg.SourceTimeout,
	}

	recherche := sources.NewRecherche("", deps, ttlRecherche)
	ban := sources.NewBAN("", deps, ttlBAN)
	bdnb := sources.NewBDNB("", cfg.GetBDNBAPIKey(), deps, ttlBDNB)
	bdtopo := sources.NewBDTopo("", deps, ttlBDTopo)
	rnb := sources.NewRNB("", deps, ttlRNB)
	dpe := sources.NewDPE("", deps, ttlDPE)
	georisques := sources.NewGeorisques("", deps, ttlGeorisques)

	var registry enrich.RegistryLookup
	if cfg.IsSireneEnabled() {
		registry = sources.NewSirene("", cfg.GetSireneClientID(), cfg.GetSireneClientSecret(), deps, ttlSirene)
	}
	var contacts enrich.ContactSource
	if cfg.IsPappersEnabled() {
		contacts = sources.NewPappers("", cfg.GetPappersAPIKey(), deps, ttlPappers)
	}

	orchestrator := enrich.New(
		registry,
		recherche,
		ban,
		rnb,
		bdnb,
		bdtopo,
		dpe,
		georisques,
		contacts,
		cfg.GetEnabledSources(),
		log,
	)

	engine := scoring.NewEngine(cfg.GetMinScores())
	svc := service.New(recherche, orchestrator, engine, cfg, log)

	return &Module{
		Service:      svc,
		Handler:      handler.New(svc, log),
		Orchestrator: orchestrator,
		Recherche:    recherche,
	}
}
