package amadeus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/upstream"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

const (
	provider    = "amadeus"
	displayName = "Amadeus"
)

// Client wraps the Amadeus reference-data and shopping endpoints.
type Client struct {
	api      *upstream.Client
	offersHC *http.Client
	radiusKm int
}

func NewClient(cfg config.Amadeus, logger *slog.Logger) *Client {
	radius := cfg.RadiusKm
	if radius <= 0 {
		radius = 20
	}
	return &Client{
		api:      upstream.New(provider, cfg.BaseURL, upstream.NewHTTPClient(cfg.Timeout), nil, logger),
		offersHC: upstream.NewHTTPClient(cfg.OffersTimeout),
		radiusKm: radius,
	}
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

type locationsReply struct {
	Data []struct {
		IataCode string `json:"iataCode"`
		Name     string `json:"name"`
	} `json:"data"`
}

// CityCode resolves a city name to its IATA code. An empty code with a nil error
// means no match.
func (c *Client) CityCode(ctx context.Context, token, city string) (string, error) {
	q := url.Values{}
	q.Set("keyword", city)
	q.Set("subType", "CITY")

	var reply locationsReply
	if err := c.api.GetJSON(ctx, "locations", "/v1/reference-data/locations", q, bearer(token), &reply); err != nil {
		return "", err
	}
	for _, loc := range reply.Data {
		if loc.IataCode != "" {
			return loc.IataCode, nil
		}
	}
	return "", nil
}

type hotelsByCityReply struct {
	Data []struct {
		HotelID string `json:"hotelId"`
		Name    string `json:"name"`
	} `json:"data"`
}

// HotelIDs lists the hotels within the configured radius of a city code.
func (c *Client) HotelIDs(ctx context.Context, token, cityCode string) ([]string, error) {
	q := url.Values{}
	q.Set("cityCode", cityCode)
	q.Set("radius", strconv.Itoa(c.radiusKm))
	q.Set("radiusUnit", "KM")

	var reply hotelsByCityReply
	if err := c.api.GetJSON(ctx, "hotels_by_city", "/v1/reference-data/locations/hotels/by-city", q, bearer(token), &reply); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(reply.Data))
	for _, h := range reply.Data {
		if h.HotelID != "" {
			ids = append(ids, h.HotelID)
		}
	}
	return ids, nil
}

// OffersQuery is one batch of the hotel offer search.
type OffersQuery struct {
	HotelIDs     []string
	Adults       int
	Children     int
	Rooms        int
	CheckInDate  types.Date
	CheckOutDate types.Date
}

// AdultsPerRoom counts two children as one adult and spreads guests across rooms.
func AdultsPerRoom(adults, children, rooms int) int {
	if rooms <= 0 {
		rooms = 1
	}
	return int(math.Ceil((float64(adults) + float64(children)/2) / float64(rooms)))
}

func (q OffersQuery) values() url.Values {
	v := url.Values{}
	v.Set("hotelIds", strings.Join(q.HotelIDs, ","))
	v.Set("adults", strconv.Itoa(AdultsPerRoom(q.Adults, q.Children, q.Rooms)))
	v.Set("checkInDate", q.CheckInDate.String())
	v.Set("checkOutDate", q.CheckOutDate.String())
	v.Set("roomQuantity", strconv.Itoa(q.Rooms))
	v.Set("includeClosed", "false")
	v.Set("paymentPolicy", "NONE")
	v.Set("bestRateOnly", "true")
	v.Set("view", "FULL")
	v.Set("sort", "PRICE")
	return v
}

// HotelOffer is one entry of the hotel-offers reply.
type HotelOffer struct {
	Type      string       `json:"type"`
	Available bool         `json:"available"`
	Hotel     *OfferHotel  `json:"hotel"`
	Offers    []OfferPrice `json:"offers"`
}

type OfferHotel struct {
	HotelID   string   `json:"hotelId"`
	Name      string   `json:"name"`
	CityCode  string   `json:"cityCode"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type OfferPrice struct {
	ID    string `json:"id"`
	Price struct {
		Currency string             `json:"currency"`
		Total    upstream.FlexFloat `json:"total"`
	} `json:"price"`
}

// Bookable reports whether the offer can be turned into a hotel result.
func (o HotelOffer) Bookable() bool {
	return o.Available && o.Hotel != nil && len(o.Offers) > 0
}

type offersReply struct {
	Data []HotelOffer `json:"data"`
}

// Offers runs one offer search for a batch of hotel ids.
func (c *Client) Offers(ctx context.Context, token string, q OffersQuery) ([]HotelOffer, error) {
	var reply offersReply
	err := c.api.Do(ctx, upstream.Request{
		Method:     http.MethodGet,
		Endpoint:   "hotel_offers",
		Path:       "/v3/shopping/hotel-offers",
		Query:      q.values(),
		Header:     bearer(token),
		HTTPClient: c.offersHC,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("hotel offers batch of %d: %w", len(q.HotelIDs), err)
	}
	return reply.Data, nil
}
