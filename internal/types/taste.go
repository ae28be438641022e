package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntityNamespace prefixes every recognized taste-engine entity type.
const EntityNamespace = "urn:entity:"

// TasteEntity is a resolved interest: an entity id plus its primary type.
type TasteEntity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// TasteRecommendations is the ranked result set returned by the insights endpoint.
type TasteRecommendations struct {
	Results struct {
		Entities []TasteRecommendation `json:"entities"`
	} `json:"results"`
}

// Entities is nil-safe.
func (r *TasteRecommendations) Entities() []TasteRecommendation {
	if r == nil {
		return nil
	}
	return r.Results.Entities
}

// TasteRecommendation is one recommended entity, typically a place.
type TasteRecommendation struct {
	Name             string           `json:"name"`
	EntityID         string           `json:"entity_id"`
	Type             string           `json:"type,omitempty"`
	Subtype          string           `json:"subtype,omitempty"`
	Description      *string          `json:"description,omitempty"`
	Address          *string          `json:"address,omitempty"`
	Website          *string          `json:"website,omitempty"`
	Rating           *float64         `json:"rating,omitempty"`
	HoursOfOperation string           `json:"hours_of_operation,omitempty"`
	Properties       *TasteProperties `json:"properties,omitempty"`
	Location         *GeoPoint        `json:"location,omitempty"`
}

// TasteProperties is the provider-specific property bag of a recommendation.
type TasteProperties struct {
	Description    *string      `json:"description,omitempty"`
	Address        *string      `json:"address,omitempty"`
	Website        *string      `json:"website,omitempty"`
	BusinessRating *float64     `json:"business_rating,omitempty"`
	Keywords       Keywords     `json:"keywords,omitempty"`
	Hours          OpeningHours `json:"hours,omitempty"`
	PriceRange     *PriceRange  `json:"price_range,omitempty"`
	PriceLevel     *int         `json:"price_level,omitempty"`
}

type GeoPoint struct {
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

type PriceRange struct {
	From     *float64 `json:"from,omitempty"`
	To       *float64 `json:"to,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// Keywords decodes a list of {"name": ...} objects. Any other shape decodes to nil.
type Keywords []string

func (k *Keywords) UnmarshalJSON(data []byte) error {
	var raw []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*k = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw.Name != "" {
			out = append(out, kw.Name)
		}
	}
	*k = out
	return nil
}

// HoursSlot is one opening window of a day. Times carry a leading "T", e.g. "T09:00".
type HoursSlot struct {
	Opens  string `json:"opens,omitempty"`
	Closes string `json:"closes,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// DayHours is the schedule of one weekday.
type DayHours struct {
	Day   string
	Slots []HoursSlot
}

// OpeningHours keeps weekdays in the order the provider sent them.
// Non-object payloads and malformed days decode to empty entries.
type OpeningHours []DayHours

func (h *OpeningHours) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading hours: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		*h = nil
		return nil
	}
	var out OpeningHours
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading hours key: %w", err)
		}
		day, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading hours for %s: %w", day, err)
		}
		var slots []HoursSlot
		if err := json.Unmarshal(raw, &slots); err != nil {
			slots = nil
		}
		out = append(out, DayHours{Day: day, Slots: slots})
	}
	*h = out
	return nil
}

func (h OpeningHours) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Day)
		if err != nil {
			return nil, err
		}
		slots := d.Slots
		if slots == nil {
			slots = []HoursSlot{}
		}
		val, err := json.Marshal(slots)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NormalizedPOI is the prompt-facing record shared by recommendations and activities.
type NormalizedPOI struct {
	Name             string   `json:"name"`
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Description      string   `json:"description"`
	Address          string   `json:"address"`
	Website          string   `json:"website"`
	Rating           string   `json:"rating"`
	Keywords         []string `json:"keywords"`
	HoursOfOperation string   `json:"hours_of_operation"`
	PriceInfo        string   `json:"estimated_price_level_or_range"`
	LocationCoords   string   `json:"location_coords"`
}
