package viator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/upstream"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

const (
	provider    = "viator"
	displayName = "Viator"
)

// Client searches Viator for bookable activities.
type Client struct {
	api      *upstream.Client
	apiKey   string
	pageSize int
	currency string
	logger   *slog.Logger
}

func NewClient(cfg config.Viator, logger *slog.Logger) *Client {
	header := http.Header{}
	header.Set("exp-api-key", cfg.APIKey)
	header.Set("Accept-Language", "en-US")
	header.Set("Accept", "application/json;version=2.0")

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}
	return &Client{
		api:      upstream.New(provider, cfg.BaseURL, upstream.NewHTTPClient(cfg.Timeout), header, logger),
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		currency: currency,
		logger:   logger.With(slog.String("component", "viator")),
	}
}

type destinationsReply struct {
	Destinations []struct {
		DestinationID upstream.FlexString `json:"destinationId"`
		Name          string              `json:"name"`
		Type          string              `json:"type"`
	} `json:"destinations"`
}

// DestinationID returns the id of the first CITY destination whose name contains
// city, ignoring case. An empty id with a nil error means no match.
func (c *Client) DestinationID(ctx context.Context, city string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: viator api key not configured", types.ErrUpstreamUnavailable)
	}
	var reply destinationsReply
	if err := c.api.GetJSON(ctx, "destinations", "/destinations", nil, nil, &reply); err != nil {
		return "", err
	}
	needle := strings.ToLower(strings.TrimSpace(city))
	for _, d := range reply.Destinations {
		if d.Type == "CITY" && strings.Contains(strings.ToLower(d.Name), needle) && d.DestinationID != "" {
			return string(d.DestinationID), nil
		}
	}
	return "", nil
}

type searchRequest struct {
	Filtering struct {
		Destination string `json:"destination"`
	} `json:"filtering"`
	Sorting struct {
		Sort  string `json:"sort"`
		Order string `json:"order"`
	} `json:"sorting"`
	Pagination struct {
		Start int `json:"start"`
		Count int `json:"count"`
	} `json:"pagination"`
}

type product struct {
	ProductCode string  `json:"productCode"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Pricing     struct {
		Summary struct {
			FromPrice upstream.FlexFloat `json:"fromPrice"`
		} `json:"summary"`
		Currency string `json:"currency"`
	} `json:"pricing"`
	Reviews struct {
		CombinedAverageRating *float64 `json:"combinedAverageRating"`
	} `json:"reviews"`
	Images []struct {
		URL      string `json:"url"`
		Variants []struct {
			URL string `json:"url"`
		} `json:"variants"`
	} `json:"images"`
	WebURL string `json:"webURL"`
}

type searchReply struct {
	Products []product `json:"products"`
}

// SearchActivities lists the top rated activities for a city. A city without a
// Viator destination yields (nil, nil).
func (c *Client) SearchActivities(ctx context.Context, city string) ([]types.ActivityResult, error) {
	ctx, span := otel.Tracer("Viator").Start(ctx, "SearchActivities", trace.WithAttributes(
		attribute.String("city", city),
	))
	defer span.End()

	destID, err := c.DestinationID(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("destination lookup: %w", err)
	}
	if destID == "" {
		c.logger.InfoContext(ctx, "No destination found for city", slog.String("city", city))
		return nil, nil
	}

	var req searchRequest
	req.Filtering.Destination = destID
	req.Sorting.Sort = "TRAVELER_RATING"
	req.Sorting.Order = "DESCENDING"
	req.Pagination.Start = 1
	req.Pagination.Count = c.pageSize

	var reply searchReply
	if err := c.api.PostJSON(ctx, "products_search", "/products/search", nil, req, &reply); err != nil {
		return nil, fmt.Errorf("activity search: %w", err)
	}

	results := make([]types.ActivityResult, 0, len(reply.Products))
	for _, p := range reply.Products {
		results = append(results, c.toActivity(p))
	}
	span.SetAttributes(attribute.Int("activities", len(results)))
	c.logger.InfoContext(ctx, "Standardized activity results",
		slog.String("city", city), slog.Int("count", len(results)))
	return results, nil
}

func (c *Client) toActivity(p product) types.ActivityResult {
	a := types.ActivityResult{
		Provider:    displayName,
		ActivityID:  p.ProductCode,
		Name:        p.Title,
		Description: p.Description,
		Price:       p.Pricing.Summary.FromPrice.Or(0),
		Currency:    p.Pricing.Currency,
		Rating:      p.Reviews.CombinedAverageRating,
	}
	if a.Price < 0 {
		a.Price = 0
	}
	if a.Currency == "" {
		a.Currency = c.currency
	}
	if len(p.Images) > 0 {
		img := p.Images[0].URL
		if img == "" && len(p.Images[0].Variants) > 0 {
			img = p.Images[0].Variants[len(p.Images[0].Variants)-1].URL
		}
		if img != "" {
			a.ImageURL = &img
		}
	}
	if p.WebURL != "" {
		link := p.WebURL
		a.BookingLink = &link
	}
	return a
}
