package itinerary

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/prompt"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

// AllocateBudget asks the model to split a trip budget across spending categories.
func (s *ServiceImpl) AllocateBudget(ctx context.Context, req types.BudgetRequest) (*types.BudgetAllocation, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "AllocateBudget", trace.WithAttributes(
		attribute.Float64("budget", req.Budget),
		attribute.Int("trip_length", req.TripLength),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "AllocateBudget"))

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid budget request")
		return nil, err
	}

	text, err := prompt.ComposeBudget(req.Budget, req.TripLength, req.PrimaryInterest)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("composing budget prompt: %w", err)
	}

	l.DebugContext(ctx, "Sending budget allocation prompt")
	reply, err := s.llm.GenerateContent(ctx, text, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, fmt.Errorf("%w: budget model call: %w", types.ErrUpstreamUnavailable, err)
	}

	alloc, err := ParseBudget(reply)
	if err != nil {
		l.WarnContext(ctx, "Budget reply could not be parsed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed budget reply")
		return nil, err
	}

	span.SetStatus(codes.Ok, "budget allocated")
	return alloc, nil
}
