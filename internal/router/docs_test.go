package router

import (
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/api/itinerary"
)

// documentedRoutes collects "METHOD /path" pairs from the @Router annotations in file.
func documentedRoutes(t *testing.T, file string) []string {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ParseComments)
	require.NoError(t, err)

	var routes []string
	for _, group := range f.Comments {
		for _, c := range group.List {
			fields := strings.Fields(strings.TrimPrefix(c.Text, "//"))
			if len(fields) != 3 || fields[0] != "@Router" {
				continue
			}
			method := strings.ToUpper(strings.Trim(fields[2], "[]"))
			routes = append(routes, method+" "+fields[1])
		}
	}
	return routes
}

func TestDocumentedRoutesAreMounted(t *testing.T) {
	documented := documentedRoutes(t, "../api/itinerary/handler.go")
	assert.ElementsMatch(t, []string{"POST /api/v1/itinerary", "POST /api/v1/budget"}, documented)

	r := SetupRouter(&Config{
		ItineraryHandler: itinerary.NewHandlerImpl(&stubService{}, slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	mounted := map[string]bool{}
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		mounted[method+" "+strings.TrimSuffix(route, "/")] = true
		return nil
	})
	require.NoError(t, err)

	for _, route := range documented {
		assert.True(t, mounted[route], "documented route %s is not mounted", route)
	}
}
