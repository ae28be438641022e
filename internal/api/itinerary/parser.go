package itinerary

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ExtractJSON returns the contents of the first ```json fenced block in text.
func ExtractJSON(text string) (string, error) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return "", fmt.Errorf("%w: no ```json block in model reply", types.ErrMalformedModelOutput)
	}
	return m[1], nil
}

// ParseItinerary decodes the itinerary object from a model reply. The object must
// carry "days" and must not carry "error".
func ParseItinerary(text string) (types.Itinerary, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var it types.Itinerary
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		return nil, fmt.Errorf("%w: itinerary block is not a JSON object: %w", types.ErrMalformedModelOutput, err)
	}
	if it == nil {
		return nil, fmt.Errorf("%w: itinerary block is null", types.ErrMalformedModelOutput)
	}
	if msg, ok := it["error"]; ok {
		return nil, fmt.Errorf("%w: model reported an error: %v", types.ErrMalformedModelOutput, msg)
	}
	if _, ok := it["days"]; !ok {
		return nil, fmt.Errorf("%w: itinerary has no \"days\"", types.ErrMalformedModelOutput)
	}
	return it, nil
}

var budgetKeys = []string{
	"accommodation_budget",
	"food_budget",
	"activities_budget",
	"transportation_budget",
	"shopping_budget",
}

// ParseBudget decodes a budget split from a model reply. Every category is required.
func ParseBudget(text string) (*types.BudgetAllocation, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: budget block is not a JSON object: %w", types.ErrMalformedModelOutput, err)
	}
	for _, k := range budgetKeys {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("%w: budget has no %q", types.ErrMalformedModelOutput, k)
		}
	}
	var b types.BudgetAllocation
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("%w: budget amounts must be numbers: %w", types.ErrMalformedModelOutput, err)
	}
	return &b, nil
}
