package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	appconfig "propflow/config"
	"propflow/logger"
	"propflow/models"
)

// Client talks to The Odds API v4. Every call consumes quota whether it
// succeeds or not, so the client tracks the usage headers the API returns
// and rate limits outgoing requests.
type Client struct {
	config     *appconfig.Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	log        *logger.Log

	quotaUsed      int64
	quotaRemaining int64
}

// NewClient creates a Client from the loaded configuration. The API key
// must already be validated as non-empty by the config layer.
func NewClient(cfg *appconfig.Config) *Client {
	log := logger.GetLogger()

	httpClient := &http.Client{
		Transport: apiKeyTransport{
			key:   cfg.API.Key,
			agent: cfg.API.UserAgent,
			base:  http.DefaultTransport,
		},
		Timeout: cfg.API.Timeout,
	}

	client := &Client{
		config:         cfg,
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(cfg.API.BaseURL, "/"),
		limiter:        rate.NewLimiter(rate.Limit(cfg.API.RateLimit.RequestsPerSecond), cfg.API.RateLimit.BurstSize),
		log:            log,
		quotaRemaining: -1,
	}

	log.WithComponent("oddsapi").WithFields(logger.Fields{
		"base_url": client.baseURL,
		"timeout":  cfg.API.Timeout,
	}).Debug("odds api client initialized")

	return client
}

// ListEvents fetches the upcoming events for a sport.
func (c *Client) ListEvents(ctx context.Context, sport string) ([]models.Event, error) {
	var events []models.Event
	path := fmt.Sprintf("/sports/%s/events", url.PathEscape(sport))
	if err := c.get(ctx, path, nil, &events); err != nil {
		return nil, err
	}

	c.log.WithComponent("oddsapi").WithFields(logger.Fields{
		"sport":  sport,
		"events": len(events),
	}).Info("fetched events")

	return events, nil
}

// EventOdds fetches player-prop odds for a single event across the
// configured markets, region and bookmakers.
func (c *Client) EventOdds(ctx context.Context, sport, eventID string) (*models.EventOdds, error) {
	params := url.Values{}
	params.Set("regions", c.config.API.Regions)
	params.Set("markets", strings.Join(c.config.Markets, ","))
	params.Set("oddsFormat", c.config.API.OddsFormat)
	if len(c.config.API.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(c.config.API.Bookmakers, ","))
	}

	var odds models.EventOdds
	path := fmt.Sprintf("/sports/%s/events/%s/odds", url.PathEscape(sport), url.PathEscape(eventID))
	if err := c.get(ctx, path, params, &odds); err != nil {
		return nil, err
	}

	c.log.WithComponent("oddsapi").WithFields(logger.Fields{
		"event_id":   eventID,
		"bookmakers": len(odds.Bookmakers),
	}).Info("fetched event odds")

	return &odds, nil
}

// QuotaUsed reports the credits consumed by this client's requests,
// summed from the x-requests-last response headers.
func (c *Client) QuotaUsed() int64 {
	return atomic.LoadInt64(&c.quotaUsed)
}

// QuotaRemaining reports the last seen x-requests-remaining value, or -1
// when no response has been observed yet.
func (c *Client) QuotaRemaining() int64 {
	return atomic.LoadInt64(&c.quotaRemaining)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Err: err}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	logger.LogPerformanceEntry(c.log.WithComponent("oddsapi"), "oddsapi", "api_request", time.Since(start), logger.Fields{
		"path":   path,
		"status": resp.StatusCode,
	})

	c.trackQuota(resp.Header)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &QuotaError{Remaining: resp.Header.Get("x-requests-remaining")}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) trackQuota(header http.Header) {
	if v := header.Get("x-requests-last"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			atomic.AddInt64(&c.quotaUsed, n)
			logger.AddQuotaUsed(n)
		}
	}
	if v := header.Get("x-requests-remaining"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			atomic.StoreInt64(&c.quotaRemaining, n)
		}
	}
}
