package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDPEMostRecentDiagnosticWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"total": 3,
			"results": []map[string]any{
				{"etiquette_dpe": "E", "date_etablissement_dpe": "2019-03-12", "conso_kwhep_m2_an": 320.0},
				{"etiquette_dpe": "", "date_etablissement_dpe": "2024-01-01"},
				{"etiquette_dpe": "C", "etiquette_ges": "D", "date_etablissement_dpe": "2023-06-30", "conso_kwhep_m2_an": 180.0},
			},
		})
	}))
	defer server.Close()

	adapter := NewDPE(server.URL, testDeps(), time.Minute)
	energy, err := adapter.FindByBuildingID(context.Background(), "ABCD1234EFGH")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if energy == nil {
		t.Fatal("expected a diagnostic")
	}
	if energy.Class != "C" {
		t.Fatalf("expected the 2023 diagnostic, got class %q", energy.Class)
	}
	if energy.GESClass != "D" {
		t.Fatalf("unexpected ges class %q", energy.GESClass)
	}
	if energy.ConsumptionKWhM2 == nil || *energy.ConsumptionKWhM2 != 180 {
		t.Fatalf("unexpected consumption %+v", energy.ConsumptionKWhM2)
	}
}

func TestDPENoDiagnostic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "results": []map[string]any{}})
	}))
	defer server.Close()

	adapter := NewDPE(server.URL, testDeps(), time.Minute)
	energy, err := adapter.FindByBuildingID(context.Background(), "UNKNOWN")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if energy != nil {
		t.Fatalf("expected nil, got %+v", energy)
	}
}

func TestDPEFindByAddressNeedsBothParts(t *testing.T) {
	adapter := NewDPE("http://unused", testDeps(), time.Minute)
	energy, err := adapter.FindByAddress(context.Background(), "", "75001")
	if err != nil || energy != nil {
		t.Fatalf("expected nil, nil for missing address line, got %+v, %v", energy, err)
	}
}

func TestEscapeQueryString(t *testing.T) {
	got := escapeQueryString(`10 rue de l'église (bât. B) - Paris`)
	for _, forbidden := range []string{`(`, `)`, `-`, `"`} {
		if containsRune(got, forbidden) {
			t.Fatalf("escaped string %q still contains %q", got, forbidden)
		}
	}
}

func containsRune(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
