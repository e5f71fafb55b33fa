package coinbase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"

	"github.com/guttosm/coinbench/internal/domain/models"
)

// DefaultEndpoint is used when NewClient receives an empty endpoint.
const DefaultEndpoint = "https://api.exchange.coinbase.com"

const userAgent = "coinbench/1.0"

// Client issues read-only requests against the Coinbase Exchange REST API.
//
// Every operation accepts an optional *Pool. With a nil pool the call
// acquires a pool for itself and releases it before returning, which costs
// one connection setup per call. Callers issuing many requests should pass
// their own pool.
//
// No retries are made and no timeout is imposed beyond ctx; transport errors
// are returned to the caller as *NetworkError.
type Client struct {
	endpoint string
	log      zerolog.Logger
	newPool  func() *Pool
}

// NewClient builds a client for endpoint (DefaultEndpoint when empty).
//
// Returns an error if endpoint is not an absolute http(s) URL.
func NewClient(endpoint string, log zerolog.Logger) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: want absolute http(s) URL", endpoint)
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		log:      log,
		newPool:  NewPool,
	}
	c.log.Info().Str("endpoint", c.endpoint).Msg("created")
	return c, nil
}

// Endpoint returns the base URL requests are issued against.
func (c *Client) Endpoint() string { return c.endpoint }

// ListPairs returns the pair descriptors from GET /products.
func (c *Client) ListPairs(ctx context.Context, pool *Pool) (json.RawMessage, error) {
	c.log.Debug().Msg("get pairs")
	return c.get(ctx, pool, "/products", nil)
}

// GetStats returns the descriptor of a single pair from GET /products/{pair}.
func (c *Client) GetStats(ctx context.Context, pool *Pool, pair string) (json.RawMessage, error) {
	if strings.TrimSpace(pair) == "" {
		return nil, ErrEmptyPair
	}
	c.log.Debug().Str("pair", pair).Msg("get pair stats")
	return c.get(ctx, pool, "/products/"+url.PathEscape(pair), nil)
}

// GetHistory returns candle rows from GET /products/{pair}/candles.
//
// rng is passed through as start/end and granularity as its integer seconds.
func (c *Client) GetHistory(ctx context.Context, pool *Pool, pair string, rng models.HistoryRange, g models.Granularity) (json.RawMessage, error) {
	if strings.TrimSpace(pair) == "" {
		return nil, ErrEmptyPair
	}
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", models.ErrUnknownGranularity, int(g))
	}
	c.log.Debug().Str("pair", pair).Str("granularity", g.String()).Msg("get pair history")

	params := url.Values{}
	params.Set("start", rng.Start)
	params.Set("end", rng.End)
	params.Set("granularity", g.QueryValue())
	return c.get(ctx, pool, "/products/"+url.PathEscape(pair)+"/candles", params)
}

// Ping checks that the upstream answers GET /time with a 2xx JSON body.
// Any other status is a *StatusError.
func (c *Client) Ping(ctx context.Context, pool *Pool) error {
	_, status, target, err := c.do(ctx, pool, "/time", nil)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &StatusError{URL: target, Status: status}
	}
	return nil
}

// get performs one GET against {endpoint}{path} and returns the body if it is
// valid JSON. Non-2xx bodies are returned as-is; the upstream encodes its
// errors as JSON objects and callers see them untouched.
func (c *Client) get(ctx context.Context, pool *Pool, path string, params url.Values) (json.RawMessage, error) {
	body, _, _, err := c.do(ctx, pool, path, params)
	return body, err
}

// do is get that also reports the status code and the requested URL.
func (c *Client) do(ctx context.Context, pool *Pool, path string, params url.Values) (json.RawMessage, int, string, error) {
	if pool == nil {
		pool = c.newPool()
		defer pool.Close()
	}

	target := c.endpoint + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, target, fmt.Errorf("build request %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := pool.client.Do(req)
	if err != nil {
		return nil, 0, target, &NetworkError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, target, &NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, resp.StatusCode, target, &DecodeError{URL: target, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Str("url", target).Int("status", resp.StatusCode).Msg("upstream returned non-2xx")
	}
	return json.RawMessage(body), resp.StatusCode, target, nil
}
