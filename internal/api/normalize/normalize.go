// Package normalize flattens taste recommendations and activity listings into the
// single record shape the prompt is built from.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

const (
	unknownName        = "Unknown"
	noDescription      = "No description available."
	unknownAddress     = "Unknown address."
	notAvailable       = "N/A"
	unknownPrice       = "unknown"
	noLocation         = "No precise location."
	hoursVary          = "Hours vary significantly or may be closed on certain days. Check their website."
	hoursByAppointment = "Typically closed or by appointment"
	hoursDefault       = "Varies by event or seasonal. Check their website."
	defaultCurrency    = "USD"
	defaultType   = "place"
)

var priceTiers = map[int]string{1: "low", 2: "medium", 3: "high"}

// Source is either a TasteSource or an ActivitySource.
type Source interface {
	source()
}

// TasteSource wraps a taste-engine recommendation.
type TasteSource struct {
	Recommendation types.TasteRecommendation
}

// ActivitySource wraps an activity-provider listing.
type ActivitySource struct {
	Activity types.ActivityResult
}

func (TasteSource) source()    {}
func (ActivitySource) source() {}

// Normalize never fails: every missing field gets its placeholder.
func Normalize(s Source) types.NormalizedPOI {
	switch v := s.(type) {
	case TasteSource:
		return fromTaste(v.Recommendation)
	case ActivitySource:
		return fromActivity(v.Activity)
	default:
		return types.NormalizedPOI{
			Name:             unknownName,
			Type:             defaultType,
			Description:      noDescription,
			Address:          unknownAddress,
			Website:          notAvailable,
			Rating:           notAvailable,
			Keywords:         []string{},
			HoursOfOperation: hoursDefault,
			PriceInfo:        unknownPrice,
			LocationCoords:   noLocation,
		}
	}
}

// Combine normalizes the recommendations first, then the activities.
func Combine(recs *types.TasteRecommendations, activities []types.ActivityResult) []types.NormalizedPOI {
	entities := recs.Entities()
	out := make([]types.NormalizedPOI, 0, len(entities)+len(activities))
	for _, r := range entities {
		out = append(out, Normalize(TasteSource{Recommendation: r}))
	}
	for _, a := range activities {
		out = append(out, Normalize(ActivitySource{Activity: a}))
	}
	return out
}

func fromTaste(r types.TasteRecommendation) types.NormalizedPOI {
	props := r.Properties
	if props == nil {
		props = &types.TasteProperties{}
	}

	kind := r.Subtype
	if kind == "" {
		kind = r.Type
	}
	if kind == "" {
		kind = defaultType
	}

	keywords := []string(props.Keywords)
	if keywords == nil {
		keywords = []string{}
	}

	return types.NormalizedPOI{
		Name:             orDefault(r.Name, unknownName),
		ID:               r.EntityID,
		Type:             StripNamespace(kind),
		Description:      firstString(noDescription, props.Description, r.Description),
		Address:          firstString(unknownAddress, props.Address, r.Address),
		Website:          firstString(notAvailable, props.Website, r.Website),
		Rating:           ratingText(firstFloat(props.BusinessRating, r.Rating)),
		Keywords:         keywords,
		HoursOfOperation: HoursText(props.Hours, r.HoursOfOperation),
		PriceInfo:        PriceText(props.PriceRange, props.PriceLevel, nil, ""),
		LocationCoords:   coordsText(r.Location),
	}
}

func fromActivity(a types.ActivityResult) types.NormalizedPOI {
	var flat *float64
	if a.Price > 0 {
		flat = &a.Price
	}
	return types.NormalizedPOI{
		Name:             orDefault(a.Name, unknownName),
		ID:               a.ActivityID,
		Type:             defaultType,
		Description:      firstString(noDescription, a.Description),
		Address:          unknownAddress,
		Website:          notAvailable,
		Rating:           ratingText(a.Rating),
		Keywords:         []string{},
		HoursOfOperation: hoursDefault,
		PriceInfo:        PriceText(nil, nil, flat, a.Currency),
		LocationCoords:   noLocation,
	}
}

// StripNamespace drops the "urn:entity:" or "urn:" prefix from a type.
func StripNamespace(t string) string {
	if s, ok := strings.CutPrefix(t, types.EntityNamespace); ok {
		return s
	}
	if s, ok := strings.CutPrefix(t, "urn:"); ok {
		return s
	}
	return t
}

// HoursText summarizes structured weekday hours, falling back to free text when the
// first populated day carries neither a time pair nor a closed marker.
func HoursText(hours types.OpeningHours, freeText string) string {
	for _, d := range hours {
		if len(d.Slots) > 0 && d.Slots[0].Closed {
			return hoursVary
		}
	}
	for _, d := range hours {
		if len(d.Slots) == 0 {
			continue
		}
		slot := d.Slots[0]
		if slot.Opens != "" && slot.Closes != "" {
			return fmt.Sprintf("Typically %s - %s (daily hours may vary)",
				strings.ReplaceAll(slot.Opens, "T", ""), strings.ReplaceAll(slot.Closes, "T", ""))
		}
		if slot.Closed {
			return hoursByAppointment
		}
		break
	}
	if s := strings.TrimSpace(freeText); s != "" {
		return s
	}
	return hoursDefault
}

// PriceText prefers a range, then a tier, then a flat price. A range with neither
// bound counts as absent.
func PriceText(rng *types.PriceRange, tier *int, flat *float64, currency string) string {
	switch {
	case rng != nil && (rng.From != nil || rng.To != nil):
		cur := rng.Currency
		if cur == "" {
			cur = defaultCurrency
		}
		return fmt.Sprintf("%s-%s %s (Estimated)", numberText(rng.From), numberText(rng.To), strings.ToUpper(cur))
	case tier != nil:
		if label, ok := priceTiers[*tier]; ok {
			return label
		}
		return unknownPrice
	case flat != nil:
		if currency == "" {
			currency = defaultCurrency
		}
		return fmt.Sprintf("%.2f %s (Estimated)", *flat, strings.ToUpper(currency))
	default:
		return unknownPrice
	}
}

func coordsText(loc *types.GeoPoint) string {
	if loc == nil || loc.Lat == nil || loc.Lon == nil {
		return noLocation
	}
	return fmt.Sprintf("Lat: %s, Lon: %s", numberText(loc.Lat), numberText(loc.Lon))
}

func ratingText(r *float64) string {
	if r == nil {
		return notAvailable
	}
	return numberText(r)
}

func numberText(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func firstString(def string, candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && strings.TrimSpace(*c) != "" {
			return *c
		}
	}
	return def
}

func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
