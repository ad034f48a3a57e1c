package vote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qaplatform/qaglue/pkg/csrf"
)

// Path is the persist-vote endpoint.
const Path = "/vote"

const tracerName = "qaglue/vote"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 10

// Request is the body sent to the persist-vote endpoint.
type Request struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
	Value    int    `json:"value"`
}

// Response is the decoded success body.
type Response struct {
	NewScore int
}

// Client persists votes.
type Client interface {
	Vote(ctx context.Context, req Request) (Response, error)
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// WithClientMetrics records request outcomes and latency.
func WithClientMetrics(m *Metrics) ClientOption {
	return func(c *HTTPClient) { c.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *HTTPClient) { c.tracer = t }
}

// HTTPClient talks to POST /vote.
type HTTPClient struct {
	baseURL string
	tokens  csrf.TokenSource
	http    *http.Client
	metrics *Metrics
	tracer  trace.Tracer
}

// NewHTTPClient creates a client for the backend at baseURL. tokens
// supplies the anti-forgery header and may be nil.
func NewHTTPClient(baseURL string, tokens csrf.TokenSource, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    http.DefaultClient,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Vote sends req and decodes the new score. Any failure is an *Error.
func (c *HTTPClient) Vote(ctx context.Context, req Request) (resp Response, err error) {
	ctx, span := c.tracer.Start(ctx, "vote.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("vote.item_type", req.ItemType),
			attribute.String("vote.item_id", req.ItemID),
			attribute.Int("vote.value", req.Value),
		),
	)
	start := time.Now()
	defer func() {
		outcome := "success"
		var verr *Error
		if errors.As(err, &verr) {
			outcome = verr.Kind.String()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("vote.new_score", resp.NewScore))
		}
		c.metrics.request(outcome, time.Since(start))
		span.End()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		httpReq.Header.Set(csrf.HeaderName, c.tokens.Token())
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Err: err}
	}
	defer httpResp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxResponseBytes))
		return Response{}, &Error{Kind: KindStatus, StatusCode: httpResp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Err: err}
	}
	return decodeResponse(raw)
}

// wireResponse accepts new_score and, from older backends, vote_count.
type wireResponse struct {
	NewScore  *int `json:"new_score"`
	VoteCount *int `json:"vote_count"`
}

func decodeResponse(raw []byte) (Response, error) {
	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return Response{}, &Error{Kind: KindDecode, Err: err}
	}
	switch {
	case w.NewScore != nil:
		return Response{NewScore: *w.NewScore}, nil
	case w.VoteCount != nil:
		return Response{NewScore: *w.VoteCount}, nil
	}
	return Response{}, &Error{Kind: KindDecode, Err: fmt.Errorf("missing new_score in %q", truncate(raw, 80))}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
