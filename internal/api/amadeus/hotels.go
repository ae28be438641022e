package amadeus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/geocoding"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

// Inventory is the set of Amadeus calls the hotel chain depends on.
type Inventory interface {
	CityCode(ctx context.Context, token, city string) (string, error)
	HotelIDs(ctx context.Context, token, cityCode string) ([]string, error)
	Offers(ctx context.Context, token string, q OffersQuery) ([]HotelOffer, error)
}

// AddressResolver turns hotel coordinates into display addresses, preserving order.
type AddressResolver interface {
	Addresses(ctx context.Context, points []geocoding.Coordinates) []string
}

var _ Inventory = (*Client)(nil)
var _ AddressResolver = (*geocoding.Enricher)(nil)

// HotelFetcher runs the sequential token → city → listing → offers → geocoding chain.
type HotelFetcher struct {
	tokens    TokenSource
	api       Inventory
	addresses AddressResolver
	batchSize int
	pause     time.Duration
	currency  string
	logger    *slog.Logger
}

func NewHotelFetcher(cfg config.Amadeus, tokens TokenSource, api Inventory, addresses AddressResolver, logger *slog.Logger) *HotelFetcher {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "EUR"
	}
	return &HotelFetcher{
		tokens:    tokens,
		api:       api,
		addresses: addresses,
		batchSize: batch,
		pause:     cfg.BatchPause,
		currency:  currency,
		logger:    logger.With(slog.String("component", "hotel_fetcher")),
	}
}

// FetchHotels returns the bookable hotels for the search. A step that finds nothing
// yields (nil, nil); a failing step yields an error naming it.
func (f *HotelFetcher) FetchHotels(ctx context.Context, s types.HotelSearch) ([]types.HotelResult, error) {
	ctx, span := otel.Tracer("HotelFetcher").Start(ctx, "FetchHotels", trace.WithAttributes(
		attribute.String("city", s.City),
		attribute.String("check_in", s.CheckInDate.String()),
		attribute.String("check_out", s.CheckOutDate.String()),
	))
	defer span.End()

	l := f.logger.With(slog.String("city", s.City))
	l.InfoContext(ctx, "Starting hotel search")

	if s.CheckInDate.DaysUntil(s.CheckOutDate) <= 0 {
		l.WarnContext(ctx, "Invalid date range, check-out must be after check-in")
		return nil, nil
	}
	if s.Rooms <= 0 {
		l.WarnContext(ctx, "Invalid room count", slog.Int("rooms", s.Rooms))
		return nil, nil
	}

	token, err := f.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	cityCode, err := f.api.CityCode(ctx, token, s.City)
	if err != nil {
		return nil, fmt.Errorf("city code: %w", err)
	}
	if cityCode == "" {
		l.WarnContext(ctx, "No IATA code found for city")
		return nil, nil
	}
	span.SetAttributes(attribute.String("city_code", cityCode))

	ids, err := f.api.HotelIDs(ctx, token, cityCode)
	if err != nil {
		return nil, fmt.Errorf("hotel listing: %w", err)
	}
	if len(ids) == 0 {
		l.WarnContext(ctx, "Hotel listing returned no hotels", slog.String("city_code", cityCode))
		return nil, nil
	}
	l.InfoContext(ctx, "Listed hotels", slog.Int("count", len(ids)))

	offers, err := f.fetchOffers(ctx, token, s, ids)
	if err != nil {
		return nil, err
	}

	bookable := make([]HotelOffer, 0, len(offers))
	points := make([]geocoding.Coordinates, 0, len(offers))
	for _, o := range offers {
		if !o.Bookable() {
			continue
		}
		bookable = append(bookable, o)
		points = append(points, geocoding.Coordinates{Lat: o.Hotel.Latitude, Lon: o.Hotel.Longitude})
	}
	if len(bookable) == 0 {
		l.WarnContext(ctx, "No available offers", slog.Int("offers", len(offers)))
		return nil, nil
	}

	addresses := f.addresses.Addresses(ctx, points)

	results := make([]types.HotelResult, 0, len(bookable))
	for i, o := range bookable {
		price := o.Offers[0].Price
		currency := price.Currency
		if currency == "" {
			currency = f.currency
		}
		total := price.Total.Or(0)
		if total < 0 {
			total = 0
		}
		h := types.HotelResult{
			Provider:   displayName,
			HotelID:    o.Hotel.HotelID,
			Name:       o.Hotel.Name,
			Latitude:   o.Hotel.Latitude,
			Longitude:  o.Hotel.Longitude,
			TotalPrice: total,
			Currency:   currency,
		}
		if i < len(addresses) {
			addr := addresses[i]
			h.Address = &addr
		}
		results = append(results, h)
	}

	span.SetAttributes(attribute.Int("hotels", len(results)))
	l.InfoContext(ctx, "Standardized hotel results", slog.Int("count", len(results)))
	return results, nil
}

// fetchOffers queries the offers endpoint batch by batch. The limiter spaces
// consecutive batches by the configured pause. Any failing batch aborts the search.
func (f *HotelFetcher) fetchOffers(ctx context.Context, token string, s types.HotelSearch, ids []string) ([]HotelOffer, error) {
	limit := rate.Inf
	if f.pause > 0 {
		limit = rate.Every(f.pause)
	}
	limiter := rate.NewLimiter(limit, 1)

	var all []HotelOffer
	for start := 0; start < len(ids); start += f.batchSize {
		end := min(start+f.batchSize, len(ids))
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("hotel offers: %w", err)
		}
		batch, err := f.api.Offers(ctx, token, OffersQuery{
			HotelIDs:     ids[start:end],
			Adults:       s.Adults,
			Children:     s.Children,
			Rooms:        s.Rooms,
			CheckInDate:  s.CheckInDate,
			CheckOutDate: s.CheckOutDate,
		})
		if err != nil {
			return nil, fmt.Errorf("hotel offers: %w", err)
		}
		all = append(all, batch...)
	}
	f.logger.DebugContext(ctx, "Fetched hotel offers", slog.Int("offers", len(all)), slog.Int("hotels", len(ids)))
	return all, nil
}
