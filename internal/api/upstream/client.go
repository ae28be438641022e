// Package upstream holds the outbound HTTP plumbing shared by every provider client.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tastetrail-itinerary/app/observability/metrics"
	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

const maxErrorBody = 4096

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider   string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Provider, e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return types.ErrUpstreamUnavailable }

// NewHTTPClient returns a client whose transport is traced with otelhttp.
// timeout bounds every call made through it.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Client issues JSON requests against one provider's base URL.
// It is safe for concurrent use.
type Client struct {
	provider string
	baseURL  string
	hc       *http.Client
	header   http.Header
	logger   *slog.Logger
}

// New creates a provider client. header is sent on every request.
func New(provider, baseURL string, hc *http.Client, header http.Header, logger *slog.Logger) *Client {
	if hc == nil {
		hc = NewHTTPClient(30 * time.Second)
	}
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		hc:       hc,
		header:   header,
		logger:   logger.With(slog.String("provider", provider)),
	}
}

// Provider returns the provider tag used in logs and errors.
func (c *Client) Provider() string { return c.provider }

// Request describes one call. Endpoint is a short stable name used for spans and metrics.
type Request struct {
	Method   string
	Endpoint string
	Path     string
	Query    url.Values
	Header   http.Header
	// Body is either an io.Reader sent as is, or a value encoded as JSON.
	Body any
	// HTTPClient overrides the client default, e.g. for a longer deadline.
	HTTPClient *http.Client
}

// GetJSON performs a GET and decodes the JSON reply into out.
func (c *Client) GetJSON(ctx context.Context, endpoint, path string, query url.Values, header http.Header, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Endpoint: endpoint, Path: path, Query: query, Header: header}, out)
}

// PostJSON performs a POST with a JSON body and decodes the JSON reply into out.
func (c *Client) PostJSON(ctx context.Context, endpoint, path string, header http.Header, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Path: path, Header: header, Body: body}, out)
}

// Do executes req and decodes a 2xx JSON reply into out (skipped when out is nil).
// Transport failures, non-2xx statuses and undecodable bodies wrap
// types.ErrUpstreamUnavailable.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, span := otel.Tracer("upstream").Start(ctx, c.provider+"."+req.Endpoint, trace.WithAttributes(
		attribute.String("upstream.provider", c.provider),
		attribute.String("upstream.endpoint", req.Endpoint),
	))
	defer span.End()

	start := time.Now()
	status, err := c.do(ctx, req, out)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(
		attribute.String("provider", c.provider),
		attribute.String("endpoint", req.Endpoint),
	)
	m := metrics.Get()
	m.UpstreamDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		m.UpstreamErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream call failed")
		c.logger.WarnContext(ctx, "Upstream call failed",
			slog.String("endpoint", req.Endpoint),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.Any("error", err))
		return err
	}

	c.logger.DebugContext(ctx, "Upstream call succeeded",
		slog.String("endpoint", req.Endpoint),
		slog.Int("status", status),
		slog.Duration("latency", elapsed))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) do(ctx context.Context, req Request, out any) (int, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	jsonBody := false
	switch b := req.Body.(type) {
	case nil:
	case io.Reader:
		body = b
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return 0, fmt.Errorf("encoding %s %s request: %w", c.provider, req.Endpoint, err)
		}
		body = bytes.NewReader(payload)
		jsonBody = true
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return 0, fmt.Errorf("building %s %s request: %w", c.provider, req.Endpoint, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if jsonBody && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	hc := c.hc
	if req.HTTPClient != nil {
		hc = req.HTTPClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", types.ErrUpstreamUnavailable, c.provider, req.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &StatusError{
			Provider:   c.provider,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("%w: decoding %s %s reply: %w", types.ErrUpstreamUnavailable, c.provider, req.Endpoint, err)
	}
	return resp.StatusCode, nil
}

// FlexString decodes a JSON string or number into its string form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexString(n.String())
	return nil
}

// FlexFloat decodes a JSON number or numeric string. Unparsable strings decode to nil.
type FlexFloat struct {
	Value *float64
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		f.Value = nil
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		f.Value = nil
		return nil
	}
	f.Value = &v
	return nil
}

// Or returns the value or def when absent.
func (f FlexFloat) Or(def float64) float64 {
	if f.Value == nil {
		return def
	}
	return *f.Value
}
