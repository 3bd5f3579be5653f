package hira

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	errs "hirafetch/pkg/errors"
	"hirafetch/pkg/logger"
	"hirafetch/pkg/metrics"
)

// maxBodySize bounds how much of a response is read
const maxBodySize = 32 << 20

// UserAgent is sent with every request
var UserAgent = "hirafetch/dev"

// Executor performs a single API call
type Executor interface {
	Execute(ctx context.Context, req FetchRequest) (*Page, error)
}

// Client executes HIRA API requests. Each call is one attempt as far as the
// retry policy is concerned; retrying is left to the caller. net/http may still
// resend a GET once on its own when a reused keep-alive connection is closed
// before any response arrives, so a server can see more requests than attempts.
type Client struct {
	httpClient *http.Client
	serviceKey string
	logger     logger.Logger
	metrics    *metrics.Collector
}

// NewClient creates a client with separate connect and read timeouts.
// The connect timeout bounds dialing and the TLS handshake; the read timeout
// bounds the wait for response headers. The overall client timeout is their sum.
func NewClient(serviceKey string, connectTimeout, readTimeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
		serviceKey: serviceKey,
		logger:     log,
	}
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// SetMetrics attaches a metrics collector
func (c *Client) SetMetrics(m *metrics.Collector) {
	c.metrics = m
}

// Execute performs one GET and returns the normalized page
func (c *Client) Execute(ctx context.Context, req FetchRequest) (*Page, error) {
	rawURL, err := req.URL(c.serviceKey)
	if err != nil {
		return nil, errs.New(errs.KindHTTPClient, 0, "failed to build request URL: %v", err)
	}
	logURL := RedactURL(rawURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.New(errs.KindHTTPClient, 0, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)

	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"url": logURL,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		c.record(classified, time.Since(start))
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      logURL,
			"error":    classified.Error(),
			"duration": time.Since(start),
		})
		return nil, classified
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := time.Since(start)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		c.record(classified, duration)
		return nil, classified
	}

	logger.LogRequest(c.logger, http.MethodGet, logURL, resp.StatusCode, duration)

	if err := checkStatus(resp.StatusCode, body); err != nil {
		c.record(err, duration)
		return nil, err
	}

	page, err := parseEnvelope(body, resp.StatusCode)
	c.record(err, duration)
	if err != nil {
		c.logger.WarnWithFields("unusable API response", map[string]interface{}{
			"url":   logURL,
			"error": err.Error(),
		})
		return nil, err
	}

	return page, nil
}

func (c *Client) record(err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "unclassified"
		var apiErr *errs.Error
		if errors.As(err, &apiErr) {
			outcome = string(apiErr.Kind)
		}
	}
	c.metrics.ObserveRequest(outcome, d)
}

// checkStatus maps non-2xx responses to classified errors
func checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if errs.IsRetryableStatusCode(status) {
		return errs.New(errs.KindTransientServer, status, "server returned status %d", status)
	}
	return errs.New(errs.KindHTTPClient, status, "unexpected status %d (body: %s)", status, preview(body))
}

// classifyTransportError turns a failed exchange into a classified error.
// Cancellation of the caller's context is passed through unclassified so it
// is never retried.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("request aborted: %w", ctxErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.New(errs.KindTimeout, 0, "request timed out: %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.New(errs.KindTimeout, 0, "request timed out: %v", err)
	}

	return errs.New(errs.KindConnection, 0, "connection failed: %v", err)
}
