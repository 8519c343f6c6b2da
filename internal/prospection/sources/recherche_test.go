package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"prospection_backend/platform/apperr"
)

func rechercheCompanyJSON(siren, siret, name, naf string) map[string]any {
	return map[string]any{
		"siren":               siren,
		"nom_complet":         name,
		"activite_principale": naf,
		"etat_administratif":  "A",
		"matching_etablissements": []map[string]any{{
			"siret":               siret,
			"activite_principale": naf,
			"adresse":             "1 rue du test",
			"code_postal":         "75001",
			"libelle_commune":     "Paris",
			"latitude":            "48.86",
			"longitude":           "2.34",
			"etat_administratif":  "A",
		}},
	}
}

func TestRechercheSearchPaginates(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages.Add(1)

		var results []map[string]any
		switch page {
		case "1":
			for i := 0; i < recherchePerPage; i++ {
				siren := fmt.Sprintf("1000000%02d", i)
				results = append(results, rechercheCompanyJSON(siren, siren+"00012", "Société "+siren, "52.10B"))
			}
		case "2":
			results = append(results, rechercheCompanyJSON("200000001", "20000000100013", "Dernière", "52.10B"))
		}
		pageNum, _ := strconv.Atoi(page)
		json.NewEncoder(w).Encode(map[string]any{"results": results, "page": pageNum})
	}))
	defer server.Close()

	adapter := NewRecherche(server.URL, testDeps(), time.Minute)
	candidates, err := adapter.Search(context.Background(), RechercheQuery{NAFCode: "52.10B", Limit: 30})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != recherchePerPage+1 {
		t.Fatalf("expected %d candidates, got %d", recherchePerPage+1, len(candidates))
	}
	if got := pages.Load(); got != 2 {
		t.Fatalf("expected 2 upstream pages, got %d", got)
	}
	if candidates[0].SIRET != "10000000000012" {
		t.Fatalf("unexpected first siret %q", candidates[0].SIRET)
	}
}

func TestRechercheSearchRejectsShortQuery(t *testing.T) {
	adapter := NewRecherche("http://unused", testDeps(), time.Minute)
	_, err := adapter.Search(context.Background(), RechercheQuery{Text: "ab"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRechercheSearchRequiresSomeFilter(t *testing.T) {
	adapter := NewRecherche("http://unused", testDeps(), time.Minute)
	_, err := adapter.Search(context.Background(), RechercheQuery{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRechercheSearchCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{rechercheCompanyJSON("300000001", "30000000100014", "Cachée", "35.30Z")},
		})
	}))
	defer server.Close()

	adapter := NewRecherche(server.URL, testDeps(), time.Minute)
	query := RechercheQuery{NAFCode: "35.30Z", Limit: 5}
	for i := 0; i < 3; i++ {
		if _, err := adapter.Search(context.Background(), query); err != nil {
			t.Fatalf("search %d failed: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestRechercheFindBySIREN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				rechercheCompanyJSON("999999999", "99999999900017", "Autre", "10.71A"),
				rechercheCompanyJSON("400000001", "40000000100015", "Recherchée", "10.71A"),
			},
		})
	}))
	defer server.Close()

	adapter := NewRecherche(server.URL, testDeps(), time.Minute)
	candidate, err := adapter.FindBySIREN(context.Background(), "400000001")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if candidate == nil || candidate.Name != "Recherchée" {
		t.Fatalf("expected the matching company, got %+v", candidate)
	}

	missing, err := adapter.FindBySIREN(context.Background(), "500000001")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown siren, got %+v", missing)
	}
}
