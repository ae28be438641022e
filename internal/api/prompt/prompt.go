// Package prompt renders the model prompts from embedded templates.
package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

var (
	//go:embed itinerary.tmpl
	itineraryTemplate string

	//go:embed budget.tmpl
	budgetTemplate string
)

const (
	noDislikes         = "None specified"
	noDislikesForModel = "No specific dislikes mentioned."
	noForecast         = "No forecast available."
)

// Input is everything the itinerary prompt is built from.
type Input struct {
	Request types.ItineraryRequest
	Hotels  []types.HotelResult
	POIs    []types.NormalizedPOI
	Weather []types.WeatherResult
}

// Values computes the itinerary template placeholders.
func Values(in Input) (map[string]any, error) {
	hotels, err := indentedJSON(in.Hotels)
	if err != nil {
		return nil, fmt.Errorf("encoding hotels: %w", err)
	}
	pois, err := indentedJSON(in.POIs)
	if err != nil {
		return nil, fmt.Errorf("encoding activities: %w", err)
	}

	r := in.Request
	dislikes, dislikesForModel := noDislikes, noDislikesForModel
	if len(r.Dislikes) > 0 {
		dislikes = strings.Join(r.Dislikes, ", ")
		dislikesForModel = "and strictly avoid anything related to " + dislikes
	}

	return map[string]any{
		"destination_city":              r.DestinationCity,
		"destination_country":           r.DestinationCountry,
		"trip_length":                   r.TripLength,
		"budget":                        strconv.FormatFloat(r.Budget, 'f', -1, 64),
		"primary_interest":              r.PrimaryInterest(),
		"dislikes_string":               dislikes,
		"dislikes_string_for_llm":       dislikesForModel,
		"check_in_date":                 r.CheckInDate.String(),
		"check_out_date":                r.CheckOutDate.String(),
		"all_hotel_options_string":      hotels,
		"all_activities_for_llm_string": pois,
		"weather_forecast_string":       WeatherLines(in.Weather),
	}, nil
}

// Compose renders the itinerary prompt.
func Compose(in Input) (string, error) {
	values, err := Values(in)
	if err != nil {
		return "", err
	}
	return ComposeWith(itineraryTemplate, values)
}

// ComposeBudget renders the budget allocation prompt.
func ComposeBudget(total float64, tripLength int, primaryInterest string) (string, error) {
	return ComposeWith(budgetTemplate, map[string]any{
		"budget":           total,
		"trip_length":      tripLength,
		"primary_interest": primaryInterest,
	})
}

// ComposeWith renders tmpl over values. A placeholder without a value is an error.
func ComposeWith(tmpl string, values map[string]any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("rendering prompt template: %w", err)
	}
	return buf.String(), nil
}

// WeatherLines renders one "- YYYY-MM-DD: Main (description), N°C" line per day.
func WeatherLines(days []types.WeatherResult) string {
	if len(days) == 0 {
		return noForecast
	}
	lines := make([]string, 0, len(days))
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s), %.0f°C", d.Date, d.Main, d.Description, d.TempCelsius))
	}
	return strings.Join(lines, "\n")
}

func indentedJSON[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
