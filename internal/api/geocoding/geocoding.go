package geocoding

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/tastetrail-itinerary/app/observability/metrics"
	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/upstream"
)

// NotAvailable is returned when the provider knows no address for a point.
const NotAvailable = "N/A"

// Reverser resolves coordinates into a display address. It never fails: errors are
// reported inside the returned string.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) string
}

var _ Reverser = (*Nominatim)(nil)

// Nominatim is a reverse geocoder backed by OpenStreetMap's Nominatim API.
type Nominatim struct {
	client   *upstream.Client
	language string
	logger   *slog.Logger
}

func NewNominatim(cfg config.Geocoder, logger *slog.Logger) *Nominatim {
	header := http.Header{}
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &Nominatim{
		client:   upstream.New("nominatim", cfg.BaseURL, upstream.NewHTTPClient(cfg.Timeout), header, logger),
		language: lang,
		logger:   logger.With(slog.String("component", "geocoder")),
	}
}

// Address is the subset of the Nominatim address block used for display.
type Address struct {
	Road        string `json:"road"`
	HouseNumber string `json:"house_number"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
}

type reverseReply struct {
	Address *Address `json:"address"`
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) string {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("accept-language", n.language)

	var reply reverseReply
	if err := n.client.GetJSON(ctx, "reverse", "/reverse", q, nil, &reply); err != nil {
		recordLookup(ctx, "error")
		return "An error occurred during geocoding: " + err.Error()
	}
	if reply.Address == nil {
		recordLookup(ctx, "miss")
		return NotAvailable
	}
	formatted := FormatAddress(*reply.Address)
	if formatted == "" {
		recordLookup(ctx, "miss")
		return NotAvailable
	}
	recordLookup(ctx, "ok")
	return formatted
}

// FormatAddress renders "street, city, postcode, country", skipping empty parts.
func FormatAddress(a Address) string {
	street := strings.TrimSpace(a.HouseNumber + " " + a.Road)
	city := a.City
	if city == "" {
		city = a.Town
	}
	if city == "" {
		city = a.Village
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{street, city, a.Postcode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func recordLookup(ctx context.Context, result string) {
	metrics.Get().GeocodeLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Coordinates is an optional lat/lon pair.
type Coordinates struct {
	Lat *float64
	Lon *float64
}

// Enricher resolves many coordinates concurrently.
type Enricher struct {
	geocoder Reverser
	limit    int
	logger   *slog.Logger
}

// NewEnricher bounds concurrent lookups to limit (at least 1).
func NewEnricher(geocoder Reverser, limit int, logger *slog.Logger) *Enricher {
	if limit < 1 {
		limit = 1
	}
	return &Enricher{
		geocoder: geocoder,
		limit:    limit,
		logger:   logger.With(slog.String("component", "geocoding_enricher")),
	}
}

// Addresses returns one address per point, in input order. Points without both
// coordinates resolve to NotAvailable without a lookup.
func (e *Enricher) Addresses(ctx context.Context, points []Coordinates) []string {
	out := make([]string, len(points))
	var g errgroup.Group
	g.SetLimit(e.limit)

	lookups := 0
	for i, p := range points {
		if p.Lat == nil || p.Lon == nil {
			out[i] = NotAvailable
			continue
		}
		lookups++
		g.Go(func() error {
			out[i] = e.geocoder.Reverse(ctx, *p.Lat, *p.Lon)
			return nil
		})
	}
	e.logger.DebugContext(ctx, "Starting concurrent address lookups", slog.Int("lookups", lookups))
	_ = g.Wait()
	e.logger.DebugContext(ctx, "All addresses retrieved", slog.Int("lookups", lookups))
	return out
}
