package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/cache"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	sireneBaseURL  = "https://api.insee.fr/entreprises/sirene/V3.11"
	sireneTokenURL = "https://api.insee.fr/token"
)

// SireneAdapter queries the authenticated INSEE Sirene registry by 9- or
// 14-digit identifier. The OAuth2 client-credentials token is cached by the
// token source until near expiry.
type SireneAdapter struct {
	baseURL string
	deps    Deps
	ttl     time.Duration
	tokens  oauth2.TokenSource
}

// NewSirene creates the authenticated registry adapter.
func NewSirene(baseURL, clientID, clientSecret string, deps Deps, ttl time.Duration) *SireneAdapter {
	if baseURL == "" {
		baseURL = sireneBaseURL
	}
	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     sireneTokenURL,
	}
	return &SireneAdapter{
		baseURL: baseURL,
		deps:    deps,
		ttl:     ttl,
		tokens:  creds.TokenSource(context.Background()),
	}
}

// FindBySIRET fetches one establishment.
func (a *SireneAdapter) FindBySIRET(ctx context.Context, siret string) (*domain.Candidate, error) {
	if err := domain.ValidateSIRET(siret); err != nil {
		return nil, err
	}

	key := Key(SourceSirene, "siret", siret)
	candidate, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (*domain.Candidate, error) {
		var payload sireneSiretResponse
		reqURL := fmt.Sprintf("%s/siret/%s", a.baseURL, siret)
		if err := a.getAuthenticated(ctx, reqURL, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return payload.Etablissement.toCandidate(), nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// FindBySIREN fetches the legal unit and resolves its head-office
// establishment identifier.
func (a *SireneAdapter) FindBySIREN(ctx context.Context, siren string) (*domain.Candidate, error) {
	if err := domain.ValidateSIREN(siren); err != nil {
		return nil, err
	}

	key := Key(SourceSirene, "siren", siren)
	candidate, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (*domain.Candidate, error) {
		var payload sireneSirenResponse
		reqURL := fmt.Sprintf("%s/siren/%s", a.baseURL, siren)
		if err := a.getAuthenticated(ctx, reqURL, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		unit := payload.UniteLegale
		if unit.Siren == "" {
			return nil, nil
		}
		siegeSiret := unit.Siren + unit.NicSiege
		if !strings.HasPrefix(siegeSiret, siren) || len(siegeSiret) != 14 {
			siegeSiret = ""
		}
		raw, _ := json.Marshal(payload)
		return &domain.Candidate{
			SIREN:   unit.Siren,
			SIRET:   siegeSiret,
			Name:    unit.name(),
			NAFCode: unit.ActivitePrincipale,
			Open:    unit.EtatAdministratif == "A",
			Raw:     raw,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

func (a *SireneAdapter) getAuthenticated(ctx context.Context, reqURL string, out any) error {
	token, err := a.tokens.Token()
	if err != nil {
		return apperr.Unavailable("token acquisition failed", err).WithOp(SourceSirene)
	}

	header := http.Header{}
	token.SetAuthHeader(&http.Request{Header: header})
	return a.deps.getJSON(ctx, SourceSirene, reqURL, header, out)
}

// Raw Sirene V3 payloads.

type sireneSiretResponse struct {
	Etablissement sireneEtablissement `json:"etablissement"`
}

type sireneSirenResponse struct {
	UniteLegale sireneUniteLegale `json:"uniteLegale"`
}

type sireneEtablissement struct {
	Siret             string            `json:"siret"`
	EtatAdministratif string            `json:"etatAdministratifEtablissement"`
	UniteLegale       sireneUniteLegale `json:"uniteLegale"`
	Adresse           sireneAdresse     `json:"adresseEtablissement"`
}

type sireneUniteLegale struct {
	Siren              string `json:"siren"`
	Denomination       string `json:"denominationUniteLegale"`
	Nom                string `json:"nomUniteLegale"`
	Prenom             string `json:"prenom1UniteLegale"`
	ActivitePrincipale string `json:"activitePrincipaleUniteLegale"`
	EtatAdministratif  string `json:"etatAdministratifUniteLegale"`
	NicSiege           string `json:"nicSiegeUniteLegale"`
}

func (u *sireneUniteLegale) name() string {
	if u.Denomination != "" {
		return u.Denomination
	}
	return strings.TrimSpace(u.Prenom + " " + u.Nom)
}

type sireneAdresse struct {
	NumeroVoie     string `json:"numeroVoieEtablissement"`
	TypeVoie       string `json:"typeVoieEtablissement"`
	LibelleVoie    string `json:"libelleVoieEtablissement"`
	CodePostal     string `json:"codePostalEtablissement"`
	LibelleCommune string `json:"libelleCommuneEtablissement"`
}

func (adr *sireneAdresse) line() string {
	parts := []string{adr.NumeroVoie, adr.TypeVoie, adr.LibelleVoie}
	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

func (e *sireneEtablissement) toCandidate() *domain.Candidate {
	if e.Siret == "" {
		return nil
	}
	raw, _ := json.Marshal(e)
	return &domain.Candidate{
		SIREN:   domain.SIRENOf(e.Siret),
		SIRET:   e.Siret,
		Name:    e.UniteLegale.name(),
		NAFCode: e.UniteLegale.ActivitePrincipale,
		Address: domain.Address{
			Line:       e.Adresse.line(),
			PostalCode: e.Adresse.CodePostal,
			City:       e.Adresse.LibelleCommune,
		},
		Open: e.EtatAdministratif != "F",
		Raw:  raw,
	}
}
