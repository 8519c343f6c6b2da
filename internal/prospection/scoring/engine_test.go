package scoring

import (
	"testing"

	"prospection_backend/internal/prospection/domain"
)

func tallProfile(heightM float64) *domain.EnrichedProfile {
	return &domain.EnrichedProfile{
		Name:    "Entrepôt Logistique",
		NAFCode: "52.10B",
		Building: &domain.BuildingCharacteristics{
			HeightM:     domain.MetricOf(heightM, false),
			FloorAreaM2: domain.MetricOf(2500, true),
			HeatingType: "air chaud",
		},
		Energy: &domain.EnergyPerformance{Class: "F"},
	}
}

func TestHeightSensitivity(t *testing.T) {
	engine := NewEngine(nil)

	tall := engine.Score(domain.ProductDestratification, tallProfile(9))
	low := engine.Score(domain.ProductDestratification, tallProfile(3))

	if tall.Score <= low.Score {
		t.Fatalf("9m hall (%v) must outscore 3m hall (%v)", tall.Score, low.Score)
	}
}

func TestScoreIsClampedSumOfFactors(t *testing.T) {
	engine := NewEngine(nil)
	profiles := []*domain.EnrichedProfile{
		{},
		tallProfile(12),
		{
			NAFCode: "20.14Z",
			Sites: []domain.RegulatorySite{
				{Name: "Usine chimique", Pertinence: 80},
				{Name: "Entrepôt", Pertinence: 30},
			},
			Energy: &domain.EnergyPerformance{Class: "G", ConsumptionKWhM2: floatPtr(350)},
			Building: &domain.BuildingCharacteristics{
				FloorAreaM2: domain.MetricOf(6000, true),
			},
		},
	}

	for _, profile := range profiles {
		for _, product := range domain.KnownProducts {
			result := engine.Score(product, profile)
			if result.Score < 0 || result.Score > 100 {
				t.Fatalf("%s: score %v out of range", product, result.Score)
			}
			sum := 0.0
			for _, f := range result.Factors {
				if f.Points < 0 {
					t.Fatalf("%s: negative contribution %+v", product, f)
				}
				if f.Points > f.MaxPoints {
					t.Fatalf("%s: factor above its cap %+v", product, f)
				}
				sum += f.Points
			}
			if sum > 100 {
				sum = 100
			}
			if result.Score != sum {
				t.Fatalf("%s: score %v != clamped factor sum %v", product, result.Score, sum)
			}
		}
	}
}

func TestMissingDataScoresZero(t *testing.T) {
	engine := NewEngine(nil)
	for _, product := range domain.KnownProducts {
		result := engine.Score(product, &domain.EnrichedProfile{})
		if result.Score != 0 {
			t.Fatalf("%s: empty profile scored %v", product, result.Score)
		}
		if !result.Eligible {
			t.Fatalf("%s: zero threshold must keep everything eligible", product)
		}
		for _, f := range result.Factors {
			if f.Tier != "none" {
				t.Fatalf("%s: factor %q scored without data: %+v", product, f.Criterion, f)
			}
		}
	}
}

func TestEligibilityThreshold(t *testing.T) {
	engine := NewEngine(map[string]float64{"destratification": 60})

	strong := engine.Score(domain.ProductDestratification, tallProfile(12))
	if !strong.Eligible {
		t.Fatalf("score %v should pass the 60 threshold", strong.Score)
	}

	weak := engine.Score(domain.ProductDestratification, &domain.EnrichedProfile{})
	if weak.Eligible {
		t.Fatal("empty profile must fail a 60 threshold")
	}
	if weak.MinScore != 60 {
		t.Fatalf("unexpected threshold %v", weak.MinScore)
	}
}

func TestMatelasSitePertinenceDominates(t *testing.T) {
	engine := NewEngine(nil)

	withSite := &domain.EnrichedProfile{
		NAFCode: "20.14Z",
		Sites:   []domain.RegulatorySite{{Name: "Chaufferie vapeur", Pertinence: 80}},
	}
	withoutSite := &domain.EnrichedProfile{NAFCode: "20.14Z"}

	a := engine.Score(domain.ProductMatelas, withSite)
	b := engine.Score(domain.ProductMatelas, withoutSite)
	if a.Score <= b.Score {
		t.Fatalf("classified installation must raise the score (%v vs %v)", a.Score, b.Score)
	}
	if len(a.Justifications) == 0 {
		t.Fatal("expected a justification for the site factor")
	}
}

func TestCalorifugeageCollectiveHeating(t *testing.T) {
	engine := NewEngine(nil)
	dwellings := 60

	collective := &domain.EnrichedProfile{
		NAFCode: "68.20A",
		Building: &domain.BuildingCharacteristics{
			HeatingSystem: "chaufferie collective gaz",
			EnergyCarrier: "gaz naturel",
			FloorAreaM2:   domain.MetricOf(4000, true),
			DwellingCount: &dwellings,
		},
		Energy: &domain.EnergyPerformance{ConsumptionKWhM2: floatPtr(240)},
	}

	result := engine.Score(domain.ProductCalorifugeage, collective)
	if result.Score != 100 {
		t.Fatalf("fully matching profile should max the rubric, got %v", result.Score)
	}

	individual := &domain.EnrichedProfile{
		NAFCode: "68.20A",
		Building: &domain.BuildingCharacteristics{
			HeatingSystem: "convecteurs électriques individuels",
		},
	}
	low := engine.Score(domain.ProductCalorifugeage, individual)
	if low.Score >= result.Score {
		t.Fatalf("individual heating (%v) must not outrank collective (%v)", low.Score, result.Score)
	}
}

func floatPtr(v float64) *float64 { return &v }
