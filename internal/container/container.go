package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/tastetrail-itinerary/config"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/amadeus"
	generativeAI "github.com/FACorreiaa/tastetrail-itinerary/internal/api/generative_ai"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/geocoding"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/itinerary"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/openweather"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/qloo"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/upstream"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/viator"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	ItineraryService *itinerary.ServiceImpl
	ItineraryHandler *itinerary.HandlerImpl
}

// NewContainer builds the Gemini client from configuration and wires the rest.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	llm, err := generativeAI.NewAIClient(ctx, cfg.LLM)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", slog.Any("error", err))
		return nil, fmt.Errorf("llm client: %w", err)
	}
	logger.Info("Gemini client initialized", slog.String("model", llm.Model()))
	return Assemble(cfg, llm, logger), nil
}

// Assemble wires the provider clients, the orchestrator and its handler around llm.
func Assemble(cfg *config.Config, llm generativeAI.TextGenerator, logger *slog.Logger) *Container {
	p := cfg.Providers

	geocoder := geocoding.NewNominatim(p.Geocoder, logger)
	enricher := geocoding.NewEnricher(geocoder, p.Amadeus.BatchSize, logger)

	tokens := amadeus.NewTokenProvider(
		p.Amadeus.BaseURL,
		p.Amadeus.ClientID,
		p.Amadeus.ClientSecret,
		upstream.NewHTTPClient(p.Amadeus.Timeout),
		logger,
	)
	hotels := amadeus.NewHotelFetcher(p.Amadeus, tokens, amadeus.NewClient(p.Amadeus, logger), enricher, logger)

	activities := viator.NewClient(p.Viator, logger)
	weather := openweather.NewClient(p.OpenWeather, logger)
	taste := qloo.NewClient(p.Qloo, logger)

	service := itinerary.NewServiceImpl(taste, hotels, activities, weather, llm, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		ItineraryService: service,
		ItineraryHandler: itinerary.NewHandlerImpl(service, logger),
	}
}

// RouterConfig exposes the handlers for router.SetupRouter.
func (c *Container) RouterConfig() *router.Config {
	return &router.Config{
		ItineraryHandler: c.ItineraryHandler,
		AllowedOrigins:   c.Config.Server.AllowedOrigins,
	}
}
