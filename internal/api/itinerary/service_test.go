package itinerary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

// --- Mocks for Dependencies ---

type MockTasteFetcher struct{ mock.Mock }

func (m *MockTasteFetcher) Fetch(ctx context.Context, likes []string, city string) (*types.TasteRecommendations, error) {
	args := m.Called(ctx, likes, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TasteRecommendations), args.Error(1)
}

type MockHotelFetcher struct{ mock.Mock }

func (m *MockHotelFetcher) FetchHotels(ctx context.Context, search types.HotelSearch) ([]types.HotelResult, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HotelResult), args.Error(1)
}

type MockActivityFetcher struct{ mock.Mock }

func (m *MockActivityFetcher) SearchActivities(ctx context.Context, city string) ([]types.ActivityResult, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ActivityResult), args.Error(1)
}

type MockWeatherFetcher struct{ mock.Mock }

func (m *MockWeatherFetcher) Forecast(ctx context.Context, city string) ([]types.WeatherResult, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WeatherResult), args.Error(1)
}

type MockTextGenerator struct{ mock.Mock }

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	args := m.Called(ctx, prompt, config)
	return args.String(0), args.Error(1)
}

type mocks struct {
	taste      *MockTasteFetcher
	hotels     *MockHotelFetcher
	activities *MockActivityFetcher
	weather    *MockWeatherFetcher
	llm        *MockTextGenerator
}

func setupService() (*ServiceImpl, *mocks) {
	m := &mocks{
		taste:      new(MockTasteFetcher),
		hotels:     new(MockHotelFetcher),
		activities: new(MockActivityFetcher),
		weather:    new(MockWeatherFetcher),
		llm:        new(MockTextGenerator),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServiceImpl(m.taste, m.hotels, m.activities, m.weather, m.llm, logger), m
}

func (m *mocks) assertAll(t *testing.T) {
	m.taste.AssertExpectations(t)
	m.hotels.AssertExpectations(t)
	m.activities.AssertExpectations(t)
	m.weather.AssertExpectations(t)
	m.llm.AssertExpectations(t)
}

func testRequest() types.ItineraryRequest {
	req := types.ItineraryRequest{
		Budget:             3000,
		DestinationCity:    "Tokyo",
		DestinationCountry: "Japan",
		Likes:              []string{"Anime", "Street Food"},
		Dislikes:           []string{"Museums"},
		CheckInDate:        types.NewDate(2025, time.July, 10),
		CheckOutDate:       types.NewDate(2025, time.July, 13),
	}
	req.Normalize(types.NewDate(2025, time.June, 1))
	return req
}

func testRecommendations() *types.TasteRecommendations {
	recs := &types.TasteRecommendations{}
	recs.Results.Entities = []types.TasteRecommendation{{Name: "Nakano Broadway", EntityID: "Q1", Type: "urn:entity:place"}}
	return recs
}

var (
	testHotels     = []types.HotelResult{{Provider: "Amadeus", HotelID: "H1", Name: "Shinjuku Inn", TotalPrice: 420, Currency: "EUR"}}
	testActivities = []types.ActivityResult{{Provider: "Viator", ActivityID: "V1", Name: "Tsukiji Food Tour", Price: 80, Currency: "USD"}}
	testWeather    = []types.WeatherResult{{Date: types.NewDate(2025, time.July, 10), TempCelsius: 29.4, Main: "Clear", Description: "clear sky"}}
)

const validReply = "Here is your plan:\n```json\n{\"trip_title\": \"Tokyo Otaku Trail\", \"days\": [{\"day\": 1}]}\n```\nEnjoy!"

func expectAllFetches(m *mocks, req types.ItineraryRequest) {
	m.taste.On("Fetch", mock.Anything, req.Likes, "Tokyo").Return(testRecommendations(), nil).Once()
	m.hotels.On("FetchHotels", mock.Anything, types.HotelSearchFor(req)).Return(testHotels, nil).Once()
	m.activities.On("SearchActivities", mock.Anything, "Tokyo").Return(testActivities, nil).Once()
	m.weather.On("Forecast", mock.Anything, "Tokyo").Return(testWeather, nil).Once()
}

func promptContaining(parts ...string) any {
	return mock.MatchedBy(func(p string) bool {
		for _, part := range parts {
			if !strings.Contains(p, part) {
				return false
			}
		}
		return true
	})
}

func TestServiceImpl_GenerateItinerary(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		expectAllFetches(m, req)
		m.llm.On("GenerateContent", mock.Anything, promptContaining(
			"Shinjuku Inn",
			"Nakano Broadway",
			"Tsukiji Food Tour",
			"80.00 USD (Estimated)",
			"- 2025-07-10: Clear (clear sky), 29°C",
			"strictly avoid anything related to Museums",
			"3-day trip to Tokyo, Japan",
		), (*genai.GenerateContentConfig)(nil)).Return(validReply, nil).Once()

		it, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Tokyo Otaku Trail", it["trip_title"])
		assert.Len(t, it["days"], 1)
		m.assertAll(t)
	})

	t.Run("trip length follows the stay dates", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		expectAllFetches(m, req)
		req.TripLength = 10
		m.llm.On("GenerateContent", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.Contains(p, "3-day trip to Tokyo") && !strings.Contains(p, "10-day trip")
		}), mock.Anything).Return(validReply, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
		m.assertAll(t)
	})

	t.Run("activity failure is recovered", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, req.Likes, "Tokyo").Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, "Tokyo").Return(nil, types.ErrUpstreamUnavailable).Once()
		m.weather.On("Forecast", mock.Anything, "Tokyo").Return(testWeather, nil).Once()
		m.llm.On("GenerateContent", mock.Anything, mock.MatchedBy(func(p string) bool {
			return !strings.Contains(p, "Tsukiji") && strings.Contains(p, "Nakano Broadway")
		}), mock.Anything).Return(validReply, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
		m.assertAll(t)
	})

	t.Run("weather provider down is recovered", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, "Tokyo").Return(nil, errors.Join(types.ErrUpstreamUnavailable, errors.New("503"))).Once()
		m.llm.On("GenerateContent", mock.Anything, promptContaining("No forecast available."), mock.Anything).Return(validReply, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
		m.assertAll(t)
	})

	t.Run("empty weather is a warning", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Return(nil, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).Return([]types.WeatherResult{}, nil).Once()
		m.llm.On("GenerateContent", mock.Anything, promptContaining("No forecast available."), mock.Anything).Return(validReply, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
	})

	t.Run("other weather failure is fatal", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).Return(nil, errors.New("bad forecast payload")).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weather forecast")
		m.llm.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty hotel list is fatal and siblings still complete", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).After(20*time.Millisecond).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return([]types.HotelResult{}, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).After(20*time.Millisecond).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).After(20*time.Millisecond).Return(testWeather, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrNoInventory)
		m.assertAll(t)
	})

	t.Run("hotel failure is no inventory", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(nil, types.ErrUpstreamUnavailable).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).Return(testWeather, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		assert.ErrorIs(t, err, types.ErrNoInventory)
		assert.Contains(t, err.Error(), "hotel provider unavailable")
		m.assertAll(t)
	})

	t.Run("no taste signal is fatal", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil, types.ErrNoSignal).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).After(20*time.Millisecond).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).Return(testWeather, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		assert.ErrorIs(t, err, types.ErrNoSignal)
		m.assertAll(t)
	})

	t.Run("taste failure surfaces as no signal", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("unexpected")).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).Return(testWeather, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		assert.ErrorIs(t, err, types.ErrNoSignal)
	})

	t.Run("panicking branch is isolated", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).Panic("decoder blew up").Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).Return(testWeather, nil).Once()
		m.llm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(validReply, nil).Once()

		_, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
	})

	t.Run("fetches run concurrently", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		delay := 60 * time.Millisecond
		m.taste.On("Fetch", mock.Anything, mock.Anything, mock.Anything).After(delay).Return(testRecommendations(), nil).Once()
		m.hotels.On("FetchHotels", mock.Anything, mock.Anything).After(delay).Return(testHotels, nil).Once()
		m.activities.On("SearchActivities", mock.Anything, mock.Anything).After(delay).Return(testActivities, nil).Once()
		m.weather.On("Forecast", mock.Anything, mock.Anything).After(delay).Return(testWeather, nil).Once()
		m.llm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(validReply, nil).Once()

		start := time.Now()
		_, err := s.GenerateItinerary(ctx, req)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 3*delay)
	})

	t.Run("malformed model output", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		expectAllFetches(m, req)
		m.llm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return("```json\n{\"error\": \"cannot plan\"}\n```", nil).Once()

		it, err := s.GenerateItinerary(ctx, req)
		assert.ErrorIs(t, err, types.ErrMalformedModelOutput)
		assert.Nil(t, it)
	})

	t.Run("model call failure", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		expectAllFetches(m, req)
		m.llm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

		_, err := s.GenerateItinerary(ctx, req)
		assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
	})

	t.Run("invalid request makes no external calls", func(t *testing.T) {
		s, m := setupService()
		req := testRequest()
		req.CheckOutDate = req.CheckInDate

		_, err := s.GenerateItinerary(ctx, req)
		assert.ErrorIs(t, err, types.ErrClientInputInvalid)
		m.taste.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
		m.hotels.AssertNotCalled(t, "FetchHotels", mock.Anything, mock.Anything)
	})
}

func TestServiceImpl_AllocateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		s, m := setupService()
		reply := "```json\n{\"accommodation_budget\": 1200, \"food_budget\": 900, \"activities_budget\": 500, \"transportation_budget\": 250, \"shopping_budget\": 150}\n```"
		m.llm.On("GenerateContent", mock.Anything, promptContaining("$3000.00", "7-day trip", "Fine Dining"), mock.Anything).Return(reply, nil).Once()

		alloc, err := s.AllocateBudget(ctx, types.BudgetRequest{Budget: 3000, TripLength: 7, PrimaryInterest: "Fine Dining"})
		require.NoError(t, err)
		assert.Equal(t, &types.BudgetAllocation{
			AccommodationBudget:  1200,
			FoodBudget:           900,
			ActivitiesBudget:     500,
			TransportationBudget: 250,
			ShoppingBudget:       150,
		}, alloc)
		m.llm.AssertExpectations(t)
	})

	t.Run("malformed reply", func(t *testing.T) {
		s, m := setupService()
		m.llm.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return("I think you should spend wisely.", nil).Once()

		_, err := s.AllocateBudget(ctx, types.BudgetRequest{Budget: 3000, TripLength: 7, PrimaryInterest: "Hiking"})
		assert.ErrorIs(t, err, types.ErrMalformedModelOutput)
	})

	t.Run("invalid request", func(t *testing.T) {
		s, m := setupService()
		_, err := s.AllocateBudget(ctx, types.BudgetRequest{Budget: 0, TripLength: 7, PrimaryInterest: "Hiking"})
		assert.ErrorIs(t, err, types.ErrClientInputInvalid)
		m.llm.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "no_inventory", Outcome(types.ErrNoInventory))
	assert.Equal(t, "no_signal", Outcome(types.ErrNoSignal))
	assert.Equal(t, "invalid_input", Outcome(types.ErrClientInputInvalid))
	assert.Equal(t, "malformed_output", Outcome(types.ErrMalformedModelOutput))
	assert.Equal(t, "upstream_unavailable", Outcome(types.ErrUpstreamUnavailable))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}
