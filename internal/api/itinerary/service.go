package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/tastetrail-itinerary/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/tastetrail-itinerary/internal/api/generative_ai"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/normalize"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/prompt"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

// Stage is one step of an itinerary generation run.
type Stage string

const (
	StageCollectingInputs     Stage = "COLLECTING_INPUTS"
	StageFetchingExternalData Stage = "FETCHING_EXTERNAL_DATA"
	StageValidatingResults    Stage = "VALIDATING_RESULTS"
	StageNormalizing          Stage = "NORMALIZING"
	StageComposingPrompt      Stage = "COMPOSING_PROMPT"
	StageCallingModel         Stage = "CALLING_MODEL"
	StageParsingResponse      Stage = "PARSING_RESPONSE"
	StageDone                 Stage = "DONE"
	StageFailed               Stage = "FAILED"
)

type TasteFetcher interface {
	Fetch(ctx context.Context, likes []string, city string) (*types.TasteRecommendations, error)
}

type HotelFetcher interface {
	FetchHotels(ctx context.Context, search types.HotelSearch) ([]types.HotelResult, error)
}

type ActivityFetcher interface {
	SearchActivities(ctx context.Context, city string) ([]types.ActivityResult, error)
}

type WeatherFetcher interface {
	Forecast(ctx context.Context, city string) ([]types.WeatherResult, error)
}

var _ Service = (*ServiceImpl)(nil)

// Service plans trips and splits budgets.
type Service interface {
	GenerateItinerary(ctx context.Context, req types.ItineraryRequest) (types.Itinerary, error)
	AllocateBudget(ctx context.Context, req types.BudgetRequest) (*types.BudgetAllocation, error)
}

type ServiceImpl struct {
	taste      TasteFetcher
	hotels     HotelFetcher
	activities ActivityFetcher
	weather    WeatherFetcher
	llm        generativeAI.TextGenerator
	logger     *slog.Logger
}

func NewServiceImpl(
	taste TasteFetcher,
	hotels HotelFetcher,
	activities ActivityFetcher,
	weather WeatherFetcher,
	llm generativeAI.TextGenerator,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		taste:      taste,
		hotels:     hotels,
		activities: activities,
		weather:    weather,
		llm:        llm,
		logger:     logger,
	}
}

// fetchResults holds one slot per branch. Each branch writes only its own fields.
type fetchResults struct {
	taste    *types.TasteRecommendations
	tasteErr error

	hotels   []types.HotelResult
	hotelErr error

	activities    []types.ActivityResult
	activitiesErr error

	weather    []types.WeatherResult
	weatherErr error
}

type run struct {
	span   trace.Span
	logger *slog.Logger
	stage  Stage
}

func (r *run) enter(ctx context.Context, stage Stage) {
	r.stage = stage
	r.span.AddEvent(string(stage))
	r.logger.InfoContext(ctx, "Itinerary stage", slog.String("stage", string(stage)))
}

func (r *run) fail(ctx context.Context, err error) error {
	failedAt := r.stage
	r.stage = StageFailed
	r.span.AddEvent(string(StageFailed), trace.WithAttributes(attribute.String("failed_stage", string(failedAt))))
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, string(failedAt))
	r.logger.ErrorContext(ctx, "Itinerary generation failed",
		slog.String("stage", string(failedAt)), slog.Any("error", err))
	return err
}

// GenerateItinerary fetches taste, hotel, activity and weather data concurrently,
// builds the prompt and returns the model's itinerary.
func (s *ServiceImpl) GenerateItinerary(ctx context.Context, req types.ItineraryRequest) (itinerary types.Itinerary, err error) {
	runID := uuid.NewString()
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateItinerary", trace.WithAttributes(
		attribute.String("itinerary.run_id", runID),
		attribute.String("destination.city", req.DestinationCity),
		attribute.String("destination.country", req.DestinationCountry),
		attribute.Int("trip_length", req.TripLength),
	))
	defer span.End()

	r := &run{
		span:   span,
		logger: s.logger.With(slog.String("run_id", runID), slog.String("city", req.DestinationCity)),
	}

	start := time.Now()
	defer func() {
		m := metrics.Get()
		outcome := metric.WithAttributes(attribute.String("outcome", Outcome(err)))
		m.ItineraryRequestsTotal.Add(ctx, 1, outcome)
		m.ItineraryDurationSeconds.Record(ctx, time.Since(start).Seconds(), outcome)
	}()

	r.enter(ctx, StageCollectingInputs)
	req.DeriveTripLength()
	if err := req.Validate(); err != nil {
		return nil, r.fail(ctx, err)
	}
	search := types.HotelSearchFor(req)

	r.enter(ctx, StageFetchingExternalData)
	res := s.fetchAll(ctx, req, search)

	r.enter(ctx, StageValidatingResults)
	if err := s.validate(ctx, r.logger, &res); err != nil {
		return nil, r.fail(ctx, err)
	}

	r.enter(ctx, StageNormalizing)
	pois := normalize.Combine(res.taste, res.activities)
	span.SetAttributes(
		attribute.Int("hotels", len(res.hotels)),
		attribute.Int("pois", len(pois)),
		attribute.Int("forecast_days", len(res.weather)),
	)

	r.enter(ctx, StageComposingPrompt)
	text, err := prompt.Compose(prompt.Input{
		Request: req,
		Hotels:  res.hotels,
		POIs:    pois,
		Weather: res.weather,
	})
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("composing itinerary prompt: %w", err))
	}

	r.enter(ctx, StageCallingModel)
	reply, err := s.llm.GenerateContent(ctx, text, nil)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("%w: itinerary model call: %w", types.ErrUpstreamUnavailable, err))
	}

	r.enter(ctx, StageParsingResponse)
	itinerary, err = ParseItinerary(reply)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	r.enter(ctx, StageDone)
	span.SetStatus(codes.Ok, "itinerary generated")
	return itinerary, nil
}

// fetchAll runs the four fetches concurrently and waits for all of them. Branches
// never return an error to the group, so one failure cannot cut another short.
func (s *ServiceImpl) fetchAll(ctx context.Context, req types.ItineraryRequest, search types.HotelSearch) fetchResults {
	var res fetchResults
	var g errgroup.Group

	g.Go(func() error {
		defer recoverInto(&res.tasteErr, "taste")
		res.taste, res.tasteErr = s.taste.Fetch(ctx, req.Likes, req.DestinationCity)
		return nil
	})
	g.Go(func() error {
		defer recoverInto(&res.hotelErr, "hotel")
		res.hotels, res.hotelErr = s.hotels.FetchHotels(ctx, search)
		return nil
	})
	g.Go(func() error {
		defer recoverInto(&res.activitiesErr, "activity")
		res.activities, res.activitiesErr = s.activities.SearchActivities(ctx, req.DestinationCity)
		return nil
	})
	g.Go(func() error {
		defer recoverInto(&res.weatherErr, "weather")
		res.weather, res.weatherErr = s.weather.Forecast(ctx, req.DestinationCity)
		return nil
	})

	_ = g.Wait()
	return res
}

func recoverInto(errp *error, branch string) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("%s fetch panicked: %v", branch, r)
	}
}

// validate applies the partial failure policy: taste and hotels are required,
// weather may be missing when its provider is down, activities are optional.
func (s *ServiceImpl) validate(ctx context.Context, l *slog.Logger, res *fetchResults) error {
	if res.tasteErr != nil {
		if errors.Is(res.tasteErr, types.ErrNoSignal) {
			return res.tasteErr
		}
		return fmt.Errorf("%w: taste engine unavailable: %w", types.ErrNoSignal, res.tasteErr)
	}

	if res.hotelErr != nil {
		return fmt.Errorf("%w: hotel provider unavailable: %w", types.ErrNoInventory, res.hotelErr)
	}
	if len(res.hotels) == 0 {
		return fmt.Errorf("%w: could not find any available hotels", types.ErrNoInventory)
	}

	if res.weatherErr != nil {
		if !errors.Is(res.weatherErr, types.ErrUpstreamUnavailable) {
			return fmt.Errorf("weather forecast: %w", res.weatherErr)
		}
		l.WarnContext(ctx, "Weather provider unavailable, proceeding without forecast", slog.Any("error", res.weatherErr))
		res.weather = nil
	} else if len(res.weather) == 0 {
		l.WarnContext(ctx, "Could not retrieve weather forecast, proceeding without it")
	}

	if res.activitiesErr != nil {
		l.WarnContext(ctx, "Could not get activity data, proceeding without it", slog.Any("error", res.activitiesErr))
		res.activities = nil
	}
	return nil
}

// Outcome classifies a generation result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrClientInputInvalid):
		return "invalid_input"
	case errors.Is(err, types.ErrNoSignal):
		return "no_signal"
	case errors.Is(err, types.ErrNoInventory):
		return "no_inventory"
	case errors.Is(err, types.ErrMalformedModelOutput):
		return "malformed_output"
	case errors.Is(err, types.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "error"
	}
}
