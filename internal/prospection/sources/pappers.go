package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"prospection_backend/internal/prospection/domain"
	"prospection_backend/platform/cache"
	"prospection_backend/platform/phone"
)

const pappersBaseURL = "https://api.pappers.fr/v2"

// PappersAdapter is the paid contact-enrichment source. It is disabled by
// default; the caller only invokes it for the top-ranked results.
type PappersAdapter struct {
	baseURL string
	apiKey  string
	deps    Deps
	ttl     time.Duration
}

// NewPappers creates the contact-enrichment adapter.
func NewPappers(baseURL, apiKey string, deps Deps, ttl time.Duration) *PappersAdapter {
	if baseURL == "" {
		baseURL = pappersBaseURL
	}
	return &PappersAdapter{baseURL: baseURL, apiKey: apiKey, deps: deps, ttl: ttl}
}

// EnrichContact returns phone, email and the main company officer for a
// company, or nil when the provider knows nothing.
func (a *PappersAdapter) EnrichContact(ctx context.Context, siren string) (*domain.Contact, error) {
	if err := domain.ValidateSIREN(siren); err != nil {
		return nil, err
	}

	key := Key(SourcePappers, "contact", siren)
	contact, err := cache.GetOrSet(ctx, a.deps.Cache, a.deps.Log, key, a.ttl, func(ctx context.Context) (*domain.Contact, error) {
		params := url.Values{}
		params.Set("api_token", a.apiKey)
		params.Set("siren", siren)
		reqURL := fmt.Sprintf("%s/entreprise?%s", a.baseURL, params.Encode())

		var payload pappersCompany
		if err := a.deps.getJSON(ctx, SourcePappers, reqURL, nil, &payload); err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return payload.toContact(), nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

type pappersCompany struct {
	Telephone  string `json:"telephone"`
	Email      string `json:"email"`
	Dirigeants []struct {
		NomComplet string `json:"nom_complet"`
		Qualite    string `json:"qualite"`
	} `json:"representants"`
}

func (c *pappersCompany) toContact() *domain.Contact {
	contact := &domain.Contact{Email: c.Email}
	if c.Telephone != "" {
		contact.Phone = phone.NormalizeE164(c.Telephone)
	}
	if len(c.Dirigeants) > 0 {
		officer := c.Dirigeants[0]
		contact.Officer = strings.TrimSpace(officer.NomComplet)
		if officer.Qualite != "" && contact.Officer != "" {
			contact.Officer += " (" + officer.Qualite + ")"
		}
	}
	if contact.Phone == "" && contact.Email == "" && contact.Officer == "" {
		return nil
	}
	return contact
}
