package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MinTripLength = 1
	MaxTripLength = 14

	defaultCheckInOffsetDays = 30
	defaultStayDays          = 7
)

// ItineraryRequest is the inbound request to plan a trip.
type ItineraryRequest struct {
	Budget             float64  `json:"budget" validate:"gt=0"`
	TripLength         int      `json:"trip_length,omitempty" validate:"min=1,max=14"`
	DestinationCity    string   `json:"destination_city" validate:"required"`
	DestinationCountry string   `json:"destination_country" validate:"required"`
	Likes              []string `json:"likes" validate:"required,min=1,dive,required"`
	Dislikes           []string `json:"dislikes,omitempty"`
	CheckInDate        Date     `json:"check_in_date"`
	CheckOutDate       Date     `json:"check_out_date"`

	// Occupancy for the hotel offer search. Omitted values fall back to
	// one adult, one child and one room.
	Adults   *int `json:"adults,omitempty" validate:"omitempty,min=1"`
	Children *int `json:"children,omitempty" validate:"omitempty,min=0"`
	Rooms    *int `json:"rooms,omitempty" validate:"omitempty,min=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize fills defaults and derives TripLength from the dates, discarding any
// client supplied value. today anchors the default stay window.
func (r *ItineraryRequest) Normalize(today Date) {
	r.DestinationCity = strings.TrimSpace(r.DestinationCity)
	r.DestinationCountry = strings.TrimSpace(r.DestinationCountry)
	r.Likes = compactStrings(r.Likes)
	r.Dislikes = compactStrings(r.Dislikes)

	if r.CheckInDate.IsZero() {
		r.CheckInDate = today.AddDays(defaultCheckInOffsetDays)
	}
	if r.CheckOutDate.IsZero() {
		r.CheckOutDate = r.CheckInDate.AddDays(defaultStayDays)
	}
	if r.Adults == nil {
		r.Adults = intPtr(1)
	}
	if r.Children == nil {
		r.Children = intPtr(1)
	}
	if r.Rooms == nil {
		r.Rooms = intPtr(1)
	}
	r.DeriveTripLength()
}

// DeriveTripLength sets TripLength to the number of days between the stay dates.
func (r *ItineraryRequest) DeriveTripLength() {
	r.TripLength = r.CheckInDate.DaysUntil(r.CheckOutDate)
}

// Validate checks the request invariants. Call Normalize first.
func (r *ItineraryRequest) Validate() error {
	if !r.CheckOutDate.After(r.CheckInDate.Time) {
		return fmt.Errorf("%w: check_out_date must be after check_in_date", ErrClientInputInvalid)
	}
	return validationError(validate.Struct(r))
}

// PrimaryInterest is the first like, or a generic interest when none is set.
func (r *ItineraryRequest) PrimaryInterest() string {
	if len(r.Likes) == 0 {
		return "general interest"
	}
	return r.Likes[0]
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrClientInputInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrClientInputInvalid, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func compactStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HotelSearch carries the hotel offer query for one trip.
type HotelSearch struct {
	City         string
	CheckInDate  Date
	CheckOutDate Date
	Adults       int
	Children     int
	Rooms        int
}

// HotelSearchFor derives the hotel search from a normalized request.
func HotelSearchFor(r ItineraryRequest) HotelSearch {
	return HotelSearch{
		City:         r.DestinationCity,
		CheckInDate:  r.CheckInDate,
		CheckOutDate: r.CheckOutDate,
		Adults:       intOr(r.Adults, 1),
		Children:     intOr(r.Children, 1),
		Rooms:        intOr(r.Rooms, 1),
	}
}

func intPtr(v int) *int { return &v }

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// HotelResult is one bookable hotel offer.
type HotelResult struct {
	Provider    string   `json:"provider"`
	HotelID     string   `json:"hotel_id"`
	Name        string   `json:"name"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Address     *string  `json:"address,omitempty"`
	TotalPrice  float64  `json:"total_price"`
	Currency    string   `json:"currency"`
	BookingLink *string  `json:"booking_link,omitempty"`
}

// ActivityResult is one bookable activity listing.
type ActivityResult struct {
	Provider    string   `json:"provider"`
	ActivityID  string   `json:"activity_id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Rating      *float64 `json:"rating,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	BookingLink *string  `json:"booking_link,omitempty"`
}

// WeatherResult is the aggregated forecast for one calendar date.
type WeatherResult struct {
	Date        Date    `json:"date"`
	TempCelsius float64 `json:"temp_celsius"`
	Main        string  `json:"main"`
	Description string  `json:"description"`
	IconCode    string  `json:"icon_code"`
}

// Itinerary is the model generated plan. It always carries a "days" entry.
type Itinerary map[string]any

// BudgetAllocation splits a trip budget across spending categories.
type BudgetAllocation struct {
	AccommodationBudget  float64 `json:"accommodation_budget"`
	FoodBudget           float64 `json:"food_budget"`
	ActivitiesBudget     float64 `json:"activities_budget"`
	TransportationBudget float64 `json:"transportation_budget"`
	ShoppingBudget       float64 `json:"shopping_budget"`
}

// BudgetRequest is the inbound request for a budget split.
type BudgetRequest struct {
	Budget          float64 `json:"budget" validate:"gt=0"`
	TripLength      int     `json:"trip_length" validate:"min=1,max=14"`
	PrimaryInterest string  `json:"primary_interest" validate:"required"`
}

func (r *BudgetRequest) Validate() error {
	r.PrimaryInterest = strings.TrimSpace(r.PrimaryInterest)
	return validationError(validate.Struct(r))
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}
