package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

func strPtr(s string) *string { return &s }
func fPtr(f float64) *float64 { return &f }
func iPtr(i int) *int { return &i }

func TestNormalize_EmptyTasteUsesPlaceholders(t *testing.T) {
	got := Normalize(TasteSource{})
	assert.Equal(t, types.NormalizedPOI{
		Name:             "Unknown",
		Type:             "place",
		Description:      "No description available.",
		Address:          "Unknown address.",
		Website:          "N/A",
		Rating:           "N/A",
		Keywords:         []string{},
		HoursOfOperation: "Varies by event or seasonal. Check their website.",
		PriceInfo:        "unknown",
		LocationCoords:   "No precise location.",
	}, got)
}

func TestNormalize_TasteFromProviderPayload(t *testing.T) {
	payload := `{
		"name": "Blue Note Tokyo",
		"entity_id": "P1",
		"type": "urn:entity:place",
		"subtype": "urn:entity:jazz_club",
		"description": "top-level description",
		"properties": {
			"description": "Legendary jazz club",
			"address": "6-3-16 Minamiaoyama",
			"business_rating": 4.6,
			"keywords": [{"name": "jazz"}, {"name": "live music"}],
			"hours": {"Tuesday": [{"opens": "T17:00", "closes": "T23:00"}], "Monday": []},
			"price_range": {"from": 100, "to": 200, "currency": "eur"}
		},
		"location": {"lat": 35.661, "lon": 139.714}
	}`
	var rec types.TasteRecommendation
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	got := Normalize(TasteSource{Recommendation: rec})
	assert.Equal(t, "Blue Note Tokyo", got.Name)
	assert.Equal(t, "P1", got.ID)
	assert.Equal(t, "jazz_club", got.Type)
	assert.Equal(t, "Legendary jazz club", got.Description)
	assert.Equal(t, "6-3-16 Minamiaoyama", got.Address)
	assert.Equal(t, "N/A", got.Website)
	assert.Equal(t, "4.6", got.Rating)
	assert.Equal(t, []string{"jazz", "live music"}, got.Keywords)
	assert.Equal(t, "Typically 17:00 - 23:00 (daily hours may vary)", got.HoursOfOperation)
	assert.Equal(t, "100-200 EUR (Estimated)", got.PriceInfo)
	assert.Equal(t, "Lat: 35.661, Lon: 139.714", got.LocationCoords)
}

func TestNormalize_TopLevelFallbacks(t *testing.T) {
	rec := types.TasteRecommendation{
		Name:             "Corner Cafe",
		Type:             "urn:tag",
		Description:      strPtr("Cozy"),
		Address:          strPtr("1 Main St"),
		Website:          strPtr("https://cafe.example"),
		Rating:           fPtr(4),
		HoursOfOperation: "Mon-Fri 8-5",
	}
	got := Normalize(TasteSource{Recommendation: rec})
	assert.Equal(t, "tag", got.Type)
	assert.Equal(t, "Cozy", got.Description)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "https://cafe.example", got.Website)
	assert.Equal(t, "4", got.Rating)
	assert.Equal(t, "Mon-Fri 8-5", got.HoursOfOperation)
}

func TestNormalize_Activity(t *testing.T) {
	got := Normalize(ActivitySource{Activity: types.ActivityResult{
		Provider:    "viator",
		ActivityID:  "P9",
		Name:        "Sumo Morning Practice",
		Description: strPtr("Watch wrestlers train"),
		Price:       75,
		Currency:    "usd",
		Rating:      fPtr(4.9),
	}})
	assert.Equal(t, "P9", got.ID)
	assert.Equal(t, "place", got.Type)
	assert.Equal(t, "Watch wrestlers train", got.Description)
	assert.Equal(t, "Unknown address.", got.Address)
	assert.Equal(t, "4.9", got.Rating)
	assert.Equal(t, "75.00 USD (Estimated)", got.PriceInfo)
	assert.Equal(t, "No precise location.", got.LocationCoords)

	free := Normalize(ActivitySource{Activity: types.ActivityResult{Name: "Free walk"}})
	assert.Equal(t, "unknown", free.PriceInfo)
	assert.Equal(t, "No description available.", free.Description)
}

func TestHoursText(t *testing.T) {
	tests := []struct {
		name     string
		hours    types.OpeningHours
		freeText string
		want     string
	}{
		{
			name: "any closed day",
			hours: types.OpeningHours{
				{Day: "Monday", Slots: []types.HoursSlot{{Opens: "T09:00", Closes: "T17:00"}}},
				{Day: "Sunday", Slots: []types.HoursSlot{{Closed: true}}},
			},
			want: "Hours vary significantly or may be closed on certain days. Check their website.",
		},
		{
			name: "first populated day in provider order",
			hours: types.OpeningHours{
				{Day: "Sunday"},
				{Day: "Friday", Slots: []types.HoursSlot{{Opens: "T10:30", Closes: "T22:00"}}},
				{Day: "Monday", Slots: []types.HoursSlot{{Opens: "T08:00", Closes: "T12:00"}}},
			},
			want: "Typically 10:30 - 22:00 (daily hours may vary)",
		},
		{
			name:     "first day without a time pair uses free text",
			hours:    types.OpeningHours{{Day: "Monday", Slots: []types.HoursSlot{{Opens: "T09:00"}}}},
			freeText: "Mon-Fri 9-5",
			want:     "Mon-Fri 9-5",
		},
		{
			name:  "first day with an empty slot and no free text",
			hours: types.OpeningHours{{Day: "Monday", Slots: []types.HoursSlot{{}}}},
			want:  "Varies by event or seasonal. Check their website.",
		},
		{
			name:     "free text",
			freeText: "Dawn to dusk",
			want:     "Dawn to dusk",
		},
		{
			name: "nothing known",
			want: "Varies by event or seasonal. Check their website.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HoursText(tt.hours, tt.freeText))
		})
	}
}

func TestPriceText(t *testing.T) {
	assert.Equal(t, "100-200 EUR (Estimated)", PriceText(&types.PriceRange{From: fPtr(100), To: fPtr(200), Currency: "eur"}, nil, nil, ""))
	assert.Equal(t, "10.5-20 USD (Estimated)", PriceText(&types.PriceRange{From: fPtr(10.5), To: fPtr(20)}, iPtr(3), nil, ""))
	assert.Equal(t, "medium", PriceText(nil, iPtr(2), nil, ""))
	assert.Equal(t, "low", PriceText(nil, iPtr(1), fPtr(5), "EUR"))
	assert.Equal(t, "unknown", PriceText(nil, iPtr(7), nil, ""))
	assert.Equal(t, "12.00 EUR (Estimated)", PriceText(nil, nil, fPtr(12), "eur"))
	assert.Equal(t, "unknown", PriceText(nil, nil, nil, ""))
	assert.Equal(t, "medium", PriceText(&types.PriceRange{}, iPtr(2), nil, ""))
	assert.Equal(t, "unknown", PriceText(&types.PriceRange{Currency: "eur"}, nil, nil, ""))
	assert.Equal(t, "-50 GBP (Estimated)", PriceText(&types.PriceRange{To: fPtr(50), Currency: "gbp"}, nil, nil, ""))
}

func TestStripNamespace(t *testing.T) {
	assert.Equal(t, "place", StripNamespace("urn:entity:place"))
	assert.Equal(t, "tag:cuisine", StripNamespace("urn:tag:cuisine"))
	assert.Equal(t, "museum", StripNamespace("museum"))
}

func TestCombine(t *testing.T) {
	recs := &types.TasteRecommendations{}
	recs.Results.Entities = []types.TasteRecommendation{{Name: "A"}, {Name: "B"}}
	acts := []types.ActivityResult{{Name: "C"}}

	got := Combine(recs, acts)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Name, got[1].Name, got[2].Name})
	assert.Equal(t, "place", got[2].Type)

	assert.Len(t, Combine(nil, acts), 1)
	assert.Empty(t, Combine(nil, nil))
}
