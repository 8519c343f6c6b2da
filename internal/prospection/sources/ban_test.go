package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prospection_backend/platform/apperr"
)

func TestBANGeocodeBest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "55 rue du Faubourg Saint-Honoré Paris" {
			t.Errorf("unexpected query %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"features": []map[string]any{{
				"geometry": map[string]any{"coordinates": []float64{2.316, 48.870}},
				"properties": map[string]any{
					"label":    "55 Rue du Faubourg Saint-Honoré 75008 Paris",
					"score":    0.97,
					"postcode": "75008",
					"citycode": "75108",
					"city":     "Paris",
					"context":  "75, Paris, Île-de-France",
				},
			}},
		})
	}))
	defer server.Close()

	adapter := NewBAN(server.URL, testDeps(), time.Minute)
	best, err := adapter.GeocodeBest(context.Background(), "55 rue du Faubourg Saint-Honoré Paris")
	if err != nil {
		t.Fatalf("geocode failed: %v", err)
	}
	if best == nil {
		t.Fatal("expected a match")
	}
	if best.Latitude != 48.870 || best.Longitude != 2.316 {
		t.Fatalf("unexpected coordinates %v, %v", best.Latitude, best.Longitude)
	}
	if best.LowConfidence() {
		t.Fatalf("score %v should not be low confidence", best.Score)
	}
}

func TestBANGeocodeLowConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"features": []map[string]any{{
				"geometry":   map[string]any{"coordinates": []float64{2.0, 47.0}},
				"properties": map[string]any{"label": "vague", "score": 0.21},
			}},
		})
	}))
	defer server.Close()

	adapter := NewBAN(server.URL, testDeps(), time.Minute)
	best, err := adapter.GeocodeBest(context.Background(), "adresse illisible")
	if err != nil {
		t.Fatalf("geocode failed: %v", err)
	}
	if best == nil || !best.LowConfidence() {
		t.Fatalf("expected a low-confidence match, got %+v", best)
	}
}

func TestBANGeocodeEmptyQuery(t *testing.T) {
	adapter := NewBAN("http://unused", testDeps(), time.Minute)
	_, err := adapter.Geocode(context.Background(), "", 5)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
