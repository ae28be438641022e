package itinerary

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/api"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
	today   func() types.Date
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
		today:   types.Today,
	}
}

// GenerateItinerary godoc
// @Summary      Generate Itinerary
// @Description  Aggregates taste recommendations, hotels, activities and the weather forecast for a destination and returns a model generated day-by-day plan.
// @Tags         Itinerary
// @Accept       json
// @Produce      json
// @Param        request body types.ItineraryRequest true "Trip request"
// @Success      200 {object} types.Itinerary "Itinerary"
// @Failure      400 {object} map[string]interface{} "Invalid request"
// @Failure      404 {object} map[string]interface{} "No matching interests or hotels"
// @Failure      502 {object} map[string]interface{} "Malformed model reply"
// @Failure      500 {object} map[string]interface{} "Internal Server Error"
// @Router       /api/v1/itinerary [post]
func (h *HandlerImpl) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GenerateItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itinerary"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GenerateItinerary"))
	l.DebugContext(ctx, "Generate itinerary handler invoked")

	var req types.ItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req.Normalize(h.today())
	if err := req.Validate(); err != nil {
		l.WarnContext(ctx, "Rejected itinerary request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	l = l.With(slog.String("city", req.DestinationCity), slog.Int("trip_length", req.TripLength))
	l.InfoContext(ctx, "Received itinerary request",
		slog.String("country", req.DestinationCountry),
		slog.String("check_in", req.CheckInDate.String()),
		slog.String("check_out", req.CheckOutDate.String()),
		slog.Int("likes", len(req.Likes)))

	itinerary, err := h.service.GenerateItinerary(ctx, req)
	if err != nil {
		status, msg := StatusFor(err)
		l.ErrorContext(ctx, "Failed to generate itinerary", slog.Int("status", status), slog.Any("error", err))
		api.ErrorResponse(w, r, status, msg)
		return
	}

	l.InfoContext(ctx, "Itinerary generated successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, itinerary)
}

// AllocateBudget godoc
// @Summary      Allocate Budget
// @Description  Splits a trip budget across accommodation, food, activities, transportation and shopping.
// @Tags         Itinerary
// @Accept       json
// @Produce      json
// @Param        request body types.BudgetRequest true "Budget request"
// @Success      200 {object} types.BudgetAllocation "Budget split"
// @Failure      400 {object} map[string]interface{} "Invalid request"
// @Failure      502 {object} map[string]interface{} "Malformed model reply"
// @Failure      500 {object} map[string]interface{} "Internal Server Error"
// @Router       /api/v1/budget [post]
func (h *HandlerImpl) AllocateBudget(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "AllocateBudget", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/budget"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AllocateBudget"))

	var req types.BudgetRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	alloc, err := h.service.AllocateBudget(ctx, req)
	if err != nil {
		status, msg := StatusFor(err)
		l.ErrorContext(ctx, "Failed to allocate budget", slog.Int("status", status), slog.Any("error", err))
		api.ErrorResponse(w, r, status, msg)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, alloc)
}

// StatusFor maps a service error to an HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrClientInputInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, types.ErrNoSignal):
		return http.StatusNotFound, "Could not find any matching cultural entities for the provided 'likes'."
	case errors.Is(err, types.ErrNoInventory):
		return http.StatusNotFound, "Could not find any available hotels."
	case errors.Is(err, types.ErrMalformedModelOutput):
		return http.StatusBadGateway, "Failed to generate a valid response from the model."
	default:
		return http.StatusInternalServerError, "Failed to process request."
	}
}
