// SPDX-License-Identifier: MIT

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	vidlog "github.com/tidewatch/vidsync/internal/log"
	"github.com/tidewatch/vidsync/internal/resilience"
	"github.com/tidewatch/vidsync/internal/source"
)

const (
	maxErrBody = 8 * 1024

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 250 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
)

// HTTPOptions configures HTTPClient behavior.
type HTTPOptions struct {
	BaseURL     string
	AccessToken string // bearer credential forwarded to the remote platform

	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration

	RateLimit rate.Limit // requests/sec sustained against the platform
	Burst     int
}

func (o HTTPOptions) normalize() HTTPOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.RateLimit <= 0 {
		o.RateLimit = rate.Limit(5)
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	return o
}

// HTTPClient is the production Client implementation: a rate-limited,
// circuit-broken, OpenTelemetry-instrumented HTTP/2 client against the
// remote platform's JSON API.
type HTTPClient struct {
	base    string
	token   string
	http    *http.Client
	log     zerolog.Logger
	timeout time.Duration

	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	limiter *rate.Limiter
	cb      *resilience.CircuitBreaker
}

// NewHTTPClient constructs an HTTPClient. The returned transport enables
// HTTP/2 via http2.ConfigureTransport, falling back to HTTP/1.1 where the
// server does not negotiate h2 (the remote API is a modern, well-behaved endpoint, unlike a
// fragile embedded receiver) and is wrapped with otelhttp for distributed
// tracing.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	opts = opts.normalize()

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxConnsPerHost:       50,
		MaxIdleConnsPerHost:   10,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("platform: configure http2: %w", err)
	}

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   opts.Timeout + 5*time.Second, // safety net above the per-attempt timeout
	}

	return &HTTPClient{
		base:       strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.AccessToken,
		http:       httpClient,
		log:        vidlog.WithComponent("platform_client"),
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.Burst),
		cb:         resilience.NewCircuitBreaker("platform_client", 5, 10, 60*time.Second, 30*time.Second),
	}, nil
}

// listingEnvelope is the wire shape shared by every listing endpoint. Items
// are decoded individually via json.RawMessage so one malformed entry in a
// page does not fail the whole page.
type listingEnvelope struct {
	Items   []json.RawMessage `json:"items"`
	HasNext bool              `json:"has_next"`
}

type itemEnvelope struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ReleaseTS    int64          `json:"release_ts"`
	OwnerID      string         `json:"owner_id"`
	OwnerName    string         `json:"owner_name"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Raw          map[string]any `json:"raw"`
}

func (e itemEnvelope) toVideoInfo() source.VideoInfo {
	return source.VideoInfo{
		PlatformVideoID: e.ID,
		Title:           e.Title,
		ReleaseTS:       time.Unix(e.ReleaseTS, 0).UTC(),
		OwnerID:         e.OwnerID,
		OwnerName:       e.OwnerName,
		ThumbnailURL:    e.ThumbnailURL,
		Raw:             e.Raw,
	}
}

func decodeItem(operation string, raw json.RawMessage) ItemOrErr {
	var env itemEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ItemOrErr{Err: &Error{Sentinel: ErrMalformed, Operation: operation, Err: err}}
	}
	return ItemOrErr{Info: env.toVideoInfo()}
}

func (c *HTTPClient) FavoriteMeta(ctx context.Context, listID string) (FavoriteMeta, error) {
	var meta struct {
		Title string `json:"title"`
	}
	if err := c.getJSON(ctx, "favorite.meta", fmt.Sprintf("/x/favorite/%s", url.PathEscape(listID)), &meta); err != nil {
		return FavoriteMeta{}, err
	}
	return FavoriteMeta{Title: meta.Title}, nil
}

func (c *HTTPClient) ListFavoriteItems(ctx context.Context, listID string, page int) (Page, error) {
	return c.listPage(ctx, "favorite.list", fmt.Sprintf("/x/favorite/%s/items?page=%d", url.PathEscape(listID), page))
}

func (c *HTTPClient) CollectionMeta(ctx context.Context, collectionID, ownerID string) (CollectionMeta, error) {
	var meta struct {
		Title string `json:"title"`
		Kind  string `json:"kind"`
	}
	path := fmt.Sprintf("/x/collection/%s/%s", url.PathEscape(ownerID), url.PathEscape(collectionID))
	if err := c.getJSON(ctx, "collection.meta", path, &meta); err != nil {
		return CollectionMeta{}, err
	}
	return CollectionMeta{Title: meta.Title, Kind: source.CollectionKind(meta.Kind)}, nil
}

func (c *HTTPClient) ListCollectionItems(ctx context.Context, collectionID, ownerID string, page int) (Page, error) {
	path := fmt.Sprintf("/x/collection/%s/%s/items?page=%d", url.PathEscape(ownerID), url.PathEscape(collectionID), page)
	return c.listPage(ctx, "collection.list", path)
}

func (c *HTTPClient) SubmissionMeta(ctx context.Context, creatorID string) (SubmissionMeta, error) {
	var meta struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "submission.meta", fmt.Sprintf("/x/space/%s", url.PathEscape(creatorID)), &meta); err != nil {
		return SubmissionMeta{}, err
	}
	return SubmissionMeta{CreatorName: meta.Name}, nil
}

func (c *HTTPClient) ListSubmissionItems(ctx context.Context, creatorID string, page int) (Page, error) {
	return c.listPage(ctx, "submission.list", fmt.Sprintf("/x/space/%s/submission?page=%d", url.PathEscape(creatorID), page))
}

func (c *HTTPClient) ListWatchLaterItems(ctx context.Context, page int) (Page, error) {
	return c.listPage(ctx, "watch_later.list", fmt.Sprintf("/x/watchlater/items?page=%d", page))
}

func (c *HTTPClient) listPage(ctx context.Context, operation, path string) (Page, error) {
	var env listingEnvelope
	if err := c.getJSON(ctx, operation, path, &env); err != nil {
		return Page{}, err
	}
	items := make([]ItemOrErr, 0, len(env.Items))
	for _, raw := range env.Items {
		items = append(items, decodeItem(operation, raw))
	}
	return Page{Items: items, HasNext: env.HasNext}, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, operation, path string, out any) error {
	body, err := c.get(ctx, operation, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Sentinel: ErrMalformed, Operation: operation, Err: err}
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, operation, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Sentinel: ErrNetworkTransient, Operation: operation, Err: err}
	}
	if !c.cb.AllowRequest() {
		return nil, &Error{Sentinel: ErrNetworkTransient, Operation: operation, Err: resilience.ErrCircuitOpen}
	}
	c.cb.RecordAttempt()

	data, err := c.doGetWithRetry(ctx, operation, path)
	if err != nil {
		c.cb.RecordFailure()
		return nil, err
	}
	c.cb.RecordSuccess()
	return data, nil
}

func (c *HTTPClient) doGetWithRetry(ctx context.Context, operation, path string) ([]byte, error) {
	maxAttempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, status, err := c.doGetOnce(ctx, path)
		if err == nil && status == http.StatusOK {
			return data, nil
		}

		classified := c.classify(operation, status, err, data)
		lastErr = classified

		if !shouldRetry(status, err) || attempt == maxAttempts {
			return nil, classified
		}

		sleep := backoffFor(attempt, c.backoff, c.maxBackoff)
		c.log.Debug().Str("operation", operation).Int("attempt", attempt).Dur("sleep", sleep).Msg("retrying platform request")
		select {
		case <-ctx.Done():
			return nil, &Error{Sentinel: ErrNetworkTransient, Operation: operation, Err: ctx.Err()}
		case <-time.After(sleep):
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) doGetOnce(ctx context.Context, path string) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_, _ = io.CopyN(io.Discard, res.Body, 4096)
		_ = res.Body.Close()
	}()

	if res.StatusCode == http.StatusOK {
		body, err := io.ReadAll(res.Body)
		return body, res.StatusCode, err
	}

	snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrBody))
	return snippet, res.StatusCode, nil
}

func (c *HTTPClient) classify(operation string, status int, err error, body []byte) error {
	if err != nil {
		// Dial failures, TLS handshake failures, and context deadline overruns
		// all surface here as plain errors from http.Client.Do; none of them
		// carry a status code to discriminate further, so all are transient.
		return &Error{Sentinel: ErrNetworkTransient, Operation: operation, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Sentinel: ErrAuth, Operation: operation, Status: status, Err: bodyErr(body)}
	case status == http.StatusTooManyRequests:
		return &Error{Sentinel: ErrRateLimited, Operation: operation, Status: status, Err: bodyErr(body)}
	case status == http.StatusNotFound:
		return &Error{Sentinel: ErrNotFound, Operation: operation, Status: status, Err: bodyErr(body)}
	case status >= 500:
		return &Error{Sentinel: ErrNetworkTransient, Operation: operation, Status: status, Err: bodyErr(body)}
	default:
		return &Error{Sentinel: ErrMalformed, Operation: operation, Status: status, Err: bodyErr(body)}
	}
}

func bodyErr(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	return fmt.Errorf("%s", bytes.TrimSpace(body))
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func backoffFor(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(1<<uint(attempt-1))
	if d > max {
		d = max
	}
	return d
}

