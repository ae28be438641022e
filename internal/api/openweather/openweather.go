package openweather

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/upstream"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

// Client fetches 5-day / 3-hour forecasts from OpenWeather.
type Client struct {
	api    *upstream.Client
	apiKey string
	logger *slog.Logger
}

func NewClient(cfg config.OpenWeather, logger *slog.Logger) *Client {
	return &Client{
		api:    upstream.New("openweather", cfg.BaseURL, upstream.NewHTTPClient(cfg.Timeout), nil, logger),
		apiKey: cfg.APIKey,
		logger: logger.With(slog.String("component", "openweather")),
	}
}

// Condition is one entry of a sample's weather list.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Sample is a single 3-hour forecast point.
type Sample struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []Condition `json:"weather"`
}

type forecastReply struct {
	List []Sample `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

// Forecast returns one aggregated entry per calendar date, in forecast order.
func (c *Client) Forecast(ctx context.Context, city string) ([]types.WeatherResult, error) {
	ctx, span := otel.Tracer("OpenWeather").Start(ctx, "Forecast", trace.WithAttributes(
		attribute.String("city", city),
	))
	defer span.End()

	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: openweather api key not configured", types.ErrUpstreamUnavailable)
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	var reply forecastReply
	if err := c.api.GetJSON(ctx, "forecast", "/data/2.5/forecast", q, nil, &reply); err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", city, err)
	}

	loc := time.UTC
	if reply.City.Timezone != 0 {
		loc = time.FixedZone(reply.City.Name, reply.City.Timezone)
	}
	days := AggregateDaily(reply.List, loc)

	span.SetAttributes(attribute.Int("days", len(days)))
	c.logger.InfoContext(ctx, "Processed forecast",
		slog.String("city", city), slog.Int("samples", len(reply.List)), slog.Int("days", len(days)))
	return days, nil
}

// AggregateDaily groups samples by calendar date in loc, averaging temperatures.
// Every sample counts toward the average; the first sample of each date that has a
// condition supplies it. Dates keep the order in which they first appear, and a date
// with no condition at all is dropped.
func AggregateDaily(samples []Sample, loc *time.Location) []types.WeatherResult {
	if loc == nil {
		loc = time.UTC
	}
	type bucket struct {
		sum     float64
		count   int
		cond    Condition
		hasCond bool
	}
	var order []types.Date
	buckets := make(map[types.Date]*bucket)

	for _, s := range samples {
		d := types.DateOf(time.Unix(s.Dt, 0).In(loc))
		b, ok := buckets[d]
		if !ok {
			b = &bucket{}
			buckets[d] = b
			order = append(order, d)
		}
		if !b.hasCond && len(s.Weather) > 0 {
			b.cond, b.hasCond = s.Weather[0], true
		}
		b.sum += s.Main.Temp
		b.count++
	}

	out := make([]types.WeatherResult, 0, len(order))
	for _, d := range order {
		b := buckets[d]
		if !b.hasCond {
			continue
		}
		out = append(out, types.WeatherResult{
			Date:        d,
			TempCelsius: b.sum / float64(b.count),
			Main:        b.cond.Main,
			Description: b.cond.Description,
			IconCode:    b.cond.Icon,
		})
	}
	return out
}
