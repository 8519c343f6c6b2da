package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPappersEnrichContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_token"); got != "token-42" {
			t.Errorf("missing api token, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"telephone": "01 44 55 66 77",
			"email":     "contact@exemple.fr",
			"representants": []map[string]any{
				{"nom_complet": "Jeanne Martin", "qualite": "Président"},
			},
		})
	}))
	defer server.Close()

	adapter := NewPappers(server.URL, "token-42", testDeps(), time.Minute)
	contact, err := adapter.EnrichContact(context.Background(), "443061841")
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if contact == nil {
		t.Fatal("expected a contact")
	}
	if contact.Phone != "+33144556677" {
		t.Fatalf("expected normalized phone, got %q", contact.Phone)
	}
	if contact.Officer != "Jeanne Martin (Président)" {
		t.Fatalf("unexpected officer %q", contact.Officer)
	}
}

func TestPappersEmptyRecordIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	adapter := NewPappers(server.URL, "token", testDeps(), time.Minute)
	contact, err := adapter.EnrichContact(context.Background(), "443061841")
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if contact != nil {
		t.Fatalf("expected nil, got %+v", contact)
	}
}
