// Package backend is the HTTP adapter for the local AI backend. Every
// capability the client uses (voice, chat, document chat, speech,
// translation, vision, history) goes through Client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/observability/telemetry"
)

const maxErrorBody = 64 << 10

// Doer is satisfied by *http.Client and *circuitbreaker.HTTPClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL *url.URL
	http    Doer
	tracer  trace.Tracer
	log     *zap.Logger
}

func NewClient(baseURL string, doer Doer, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL: u,
		http:    doer,
		tracer:  otel.Tracer("github.com/seu-repo/ai-playground/internal/adapter/backend"),
		log:     log,
	}, nil
}

// BaseURL returns the backend root, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

// AudioURL resolves a backend audio path such as /static/abc.wav.
func (c *Client) AudioURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.url(ref)
}

// Health pings GET /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, "health", http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do sends one request and maps failures onto the domain taxonomy. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "backend "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	// On success the span ends when the caller closes the body, so reads
	// of a streamed reply are part of it.
	handedOff := false
	defer func() {
		if !handedOff {
			span.End()
		}
	}()

	target := c.url(path)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	telemetry.BackendLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			telemetry.BackendRequestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
			span.SetStatus(codes.Unset, "cancelled")
			return nil, fmt.Errorf("%s %s: %w", method, path, domain.ErrCancelled)
		}
		telemetry.BackendRequestsTotal.WithLabelValues(endpoint, "network").Inc()
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &domain.NetworkError{Op: method, URL: target, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	telemetry.BackendRequestsTotal.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		upErr := &domain.UpstreamError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
		span.SetStatus(codes.Error, upErr.Error())
		c.log.Warn("Backend returned error status",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", upErr.Detail),
		)
		return nil, upErr
	}

	c.log.Debug("Backend request completed",
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	resp.Body = &spanBody{ReadCloser: resp.Body, ctx: ctx, span: span}
	handedOff = true
	return resp, nil
}

// spanBody ends the request span on Close and records read failures
// other than EOF and cancellation on it.
type spanBody struct {
	io.ReadCloser
	ctx  context.Context
	span trace.Span
	once sync.Once
}

func (b *spanBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && b.ctx.Err() == nil {
		b.span.RecordError(err)
		b.span.SetStatus(codes.Error, err.Error())
	}
	return n, err
}

func (b *spanBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() { b.span.End() })
	return err
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, endpoint, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		var err error
		if body, err = jsonBody(in); err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		contentType = "application/json"
	}

	resp, err := c.do(ctx, endpoint, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := decodeJSON(resp, out); err != nil {
		return c.bodyError(ctx, endpoint, err)
	}
	return nil
}

// bodyError classifies a failure while reading a response body.
func (c *Client) bodyError(ctx context.Context, endpoint string, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", endpoint, domain.ErrCancelled)
	}
	return fmt.Errorf("decode %s response: %w", endpoint, err)
}

// multipartForm collects fields and files for a multipart request.
type multipartForm struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newMultipartForm() *multipartForm {
	f := &multipartForm{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *multipartForm) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *multipartForm) file(field, fileName string, r io.Reader) {
	if f.err != nil {
		return
	}
	part, err := f.w.CreateFormFile(field, fileName)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = io.Copy(part, r)
}

func (f *multipartForm) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.w.FormDataContentType(), nil
}

// readDetail extracts FastAPI's {"detail": ...} from an error body.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func decodeJSON(resp *http.Response, out interface{}) error {
	return json.NewDecoder(resp.Body).Decode(out)
}

func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
