package qloo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/upstream"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

const entityWeight = 100

// Client talks to the Qloo search and insights endpoints.
type Client struct {
	api        *upstream.Client
	filterType string
	take       int
	logger     *slog.Logger
}

func NewClient(cfg config.Qloo, logger *slog.Logger) *Client {
	header := http.Header{}
	header.Set("X-Api-Key", cfg.APIKey)

	filterType := cfg.FilterType
	if filterType == "" {
		filterType = types.EntityNamespace + "place"
	}
	take := cfg.Take
	if take <= 0 {
		take = 10
	}
	return &Client{
		api:        upstream.New("qloo", cfg.BaseURL, upstream.NewHTTPClient(cfg.Timeout), header, logger),
		filterType: filterType,
		take:       take,
		logger:     logger.With(slog.String("component", "qloo")),
	}
}

type searchReply struct {
	Results []struct {
		EntityID string   `json:"entity_id"`
		Name     string   `json:"name"`
		Types    []string `json:"types"`
	} `json:"results"`
}

// SearchEntities finds the entities matching a free-text interest. Results
// without an entity type are dropped.
func (c *Client) SearchEntities(ctx context.Context, query string) ([]types.TasteEntity, error) {
	q := url.Values{}
	q.Set("query", query)

	var reply searchReply
	if err := c.api.GetJSON(ctx, "search", "/search", q, nil, &reply); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	out := make([]types.TasteEntity, 0, len(reply.Results))
	for _, r := range reply.Results {
		if r.EntityID == "" {
			continue
		}
		for _, t := range r.Types {
			if strings.HasPrefix(t, types.EntityNamespace) {
				out = append(out, types.TasteEntity{ID: r.EntityID, Type: t})
				break
			}
		}
	}
	return out, nil
}

// ResolveLikes searches every like concurrently and flattens the results in like
// order. A failing search counts as no results. If nothing resolves the error
// wraps types.ErrNoSignal.
func (c *Client) ResolveLikes(ctx context.Context, likes []string) ([]types.TasteEntity, error) {
	perLike := make([][]types.TasteEntity, len(likes))

	var g errgroup.Group
	for i, like := range likes {
		g.Go(func() error {
			entities, err := c.SearchEntities(ctx, like)
			if err != nil {
				c.logger.WarnContext(ctx, "Interest search failed, ignoring",
					slog.String("like", like), slog.Any("error", err))
				return nil
			}
			perLike[i] = entities
			return nil
		})
	}
	_ = g.Wait()

	var all []types.TasteEntity
	for _, e := range perLike {
		all = append(all, e...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: could not find any matching cultural entities for the provided likes", types.ErrNoSignal)
	}
	c.logger.InfoContext(ctx, "Resolved interest entities", slog.Int("likes", len(likes)), slog.Int("entities", len(all)))
	return all, nil
}

type insightsEntity struct {
	Entity string `json:"entity"`
	Weight int    `json:"weight"`
}

type insightsLocation struct {
	Query string `json:"query"`
}

type insightsRequest struct {
	Feature struct {
		Explainability bool `json:"explainability"`
	} `json:"feature"`
	Signal struct {
		Interests struct {
			Entities []insightsEntity `json:"entities"`
		} `json:"interests"`
	} `json:"signal"`
	Filter struct {
		Type     string            `json:"type"`
		Location *insightsLocation `json:"location,omitempty"`
	} `json:"filter"`
	Results []struct {
		Take int `json:"take"`
	} `json:"results"`
}

func newInsightsRequest(entities []types.TasteEntity, filterType, city string, take int) insightsRequest {
	var req insightsRequest
	req.Feature.Explainability = true
	req.Signal.Interests.Entities = make([]insightsEntity, 0, len(entities))
	for _, e := range entities {
		req.Signal.Interests.Entities = append(req.Signal.Interests.Entities, insightsEntity{Entity: e.ID, Weight: entityWeight})
	}
	req.Filter.Type = filterType
	if city != "" {
		req.Filter.Location = &insightsLocation{Query: city}
	}
	req.Results = []struct {
		Take int `json:"take"`
	}{{Take: take}}
	return req
}

// Recommendations asks the insights endpoint for entities of filterType that match
// the weighted interests, optionally restricted to a city.
func (c *Client) Recommendations(ctx context.Context, entities []types.TasteEntity, filterType, city string, take int) (*types.TasteRecommendations, error) {
	if len(entities) == 0 {
		return &types.TasteRecommendations{}, nil
	}
	var out types.TasteRecommendations
	if err := c.api.PostJSON(ctx, "insights", "/v2/insights", nil, newInsightsRequest(entities, filterType, city, take), &out); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	return &out, nil
}

// Fetch resolves the likes and returns recommended places in city. A failed
// recommendation call yields an empty set; only unresolvable likes are an error.
func (c *Client) Fetch(ctx context.Context, likes []string, city string) (*types.TasteRecommendations, error) {
	ctx, span := otel.Tracer("Qloo").Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("city", city),
		attribute.Int("likes", len(likes)),
	))
	defer span.End()

	entities, err := c.ResolveLikes(ctx, likes)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	recs, err := c.Recommendations(ctx, entities, c.filterType, city, c.take)
	if err != nil {
		c.logger.WarnContext(ctx, "Recommendation request failed, continuing without taste results",
			slog.String("city", city), slog.Any("error", err))
		return &types.TasteRecommendations{}, nil
	}
	span.SetAttributes(attribute.Int("recommendations", len(recs.Entities())))
	c.logger.InfoContext(ctx, "Generated recommendations", slog.Int("count", len(recs.Entities())))
	return recs, nil
}
