package viralworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/google/uuid"

	"github.com/USBABC1/V75VIRAL/pkg/api/viralworker"
	"github.com/USBABC1/V75VIRAL/pkg/clients"
	"github.com/USBABC1/V75VIRAL/pkg/config"
	"github.com/USBABC1/V75VIRAL/pkg/logging"
	"github.com/USBABC1/V75VIRAL/pkg/version"
)

// Attempt timeouts for the worker search path. The total bound fails fast on
// unresponsive hosts; the probe uses a much shorter window.
const (
	searchAttemptTimeout = 15 * time.Second
	connectTimeout       = 5 * time.Second
	readHeaderTimeout    = 10 * time.Second
	probeTimeout         = 5 * time.Second
	imageTimeout         = 10 * time.Second

	retryBaseDelay = 1 * time.Second
)

// Client talks to the viral content worker. Search never returns an error:
// every failure path produces a fallback SearchResult with FallbackUsed set,
// so callers can treat all responses uniformly.
type Client struct {
	baseURL      string
	searchClient *http.Client
	probeClient  *http.Client
	imageClient  *http.Client
	quickClient  *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool

	maxRetries      int
	retryBaseDelay  time.Duration
	imagesDir       string
	maxImageBytes   int64
	allowedExts     map[string]struct{}
	fallbackMessage string

	logger  logging.Logger
	metrics *Metrics
}

// Config represents the configuration for the viral worker client
type Config struct {
	BaseURL string

	// Timeout bounds a single search attempt. Default: 15 seconds.
	Timeout time.Duration

	// MaxRetries is the total number of search attempts. Default: 3.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	// Default: 1 second.
	RetryBaseDelay time.Duration

	// ImagesDir is the local cache root for downloaded images; a
	// per-session subdirectory is created beneath it.
	ImagesDir string

	MaxImageSizeMB    int
	AllowedExtensions []string
	FallbackMessage   string

	Logger  logging.Logger
	Metrics *Metrics

	// CircuitBreakerConfig optionally guards the history and get-by-id
	// executor. When set, an absent OnStateChange defaults to the
	// Prometheus state recorder.
	CircuitBreakerConfig *clients.CircuitBreakerConfig
}

// FromViralConfig maps the resolved environment configuration onto a client
// Config.
func FromViralConfig(v config.ViralConfig, logger logging.Logger) Config {
	return Config{
		BaseURL:           v.WorkerURL,
		Timeout:           v.RequestTimeout,
		MaxRetries:        v.MaxRetries,
		ImagesDir:         v.ImagesDir,
		MaxImageSizeMB:    v.MaxImageSizeMB,
		AllowedExtensions: v.AllowedExtensions,
		FallbackMessage:   v.FallbackMessage,
		Logger:            logger,
	}
}

// NewClient creates a new viral worker client. The image cache root is
// created if absent; creating an existing directory is not an error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = searchAttemptTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = retryBaseDelay
	}
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = "analyses_data/viral_images"
	}
	if cfg.MaxImageSizeMB <= 0 {
		cfg.MaxImageSizeMB = 10
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = "viral worker integration failed"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewLoggerWithService("viral-worker-client")
	}

	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images dir %s: %w", cfg.ImagesDir, err)
	}

	transport := clients.DefaultTransport()
	transport.ResponseHeaderTimeout = readHeaderTimeout
	transport.DialContext = clients.DialContextWithTimeout(connectTimeout)

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[ext] = struct{}{}
	}

	executorCfg := clients.DefaultHTTPExecutorConfig()
	if cfg.CircuitBreakerConfig != nil {
		cb := *cfg.CircuitBreakerConfig
		if cb.Name == "" {
			cb.Name = "viral-worker"
		}
		if cb.Logger == nil {
			cb.Logger = cfg.Logger
		}
		if cb.OnStateChange == nil {
			cb.OnStateChange = clients.CircuitBreakerMetricsCallback(cb.Name)
		}
		executorCfg.CircuitBreaker = &cb
	}

	return &Client{
		baseURL:         cfg.BaseURL,
		searchClient:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		probeClient:     &http.Client{Timeout: probeTimeout},
		imageClient:     &http.Client{Timeout: imageTimeout},
		quickClient:     &http.Client{Timeout: imageTimeout},
		httpExecutor:    clients.NewHTTPExecutor(executorCfg),
		shouldRetry:     executorCfg.ShouldRetry,
		maxRetries:      cfg.MaxRetries,
		retryBaseDelay:  cfg.RetryBaseDelay,
		imagesDir:       cfg.ImagesDir,
		maxImageBytes:   int64(cfg.MaxImageSizeMB) << 20,
		allowedExts:     allowed,
		fallbackMessage: cfg.FallbackMessage,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
	}, nil
}

// NewFromEnvironment builds a client from the environment-resolved viral
// configuration.
func NewFromEnvironment(logger logging.Logger) (*Client, error) {
	return NewClient(FromViralConfig(config.LoadViralConfig(), logger))
}

// SearchOption overrides a default search parameter.
type SearchOption func(*viralworker.SearchRequest)

// WithMaxImages caps the number of records requested from the worker.
func WithMaxImages(n int) SearchOption {
	return func(r *viralworker.SearchRequest) { r.MaxImages = n }
}

// WithMinEngagement sets the minimum engagement score filter.
func WithMinEngagement(n int) SearchOption {
	return func(r *viralworker.SearchRequest) { r.MinEngagement = n }
}

// WithPlatforms sets the target platforms.
func WithPlatforms(platforms ...string) SearchOption {
	return func(r *viralworker.SearchRequest) { r.Platforms = platforms }
}

// Search queries the worker for viral content, downloads referenced images
// into the session cache directory and aggregates engagement metrics.
//
// The worker is health-checked first; if it looks down, one direct single
// shot attempt is made before giving up. Otherwise the search request is
// retried with exponential backoff up to the configured attempt limit. All
// failures collapse into the canonical fallback result.
func (c *Client) Search(ctx context.Context, query, sessionID string, opts ...SearchOption) *viralworker.SearchResult {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	payload := viralworker.SearchRequest{
		Query:         query,
		MaxImages:     20,
		MinEngagement: 50,
		Platforms:     []string{"instagram", "facebook"},
	}
	for _, opt := range opts {
		opt(&payload)
	}

	started := time.Now()
	result := c.search(ctx, payload, sessionID)
	c.metrics.observeSearch(result, time.Since(started))
	return result
}

func (c *Client) search(ctx context.Context, payload viralworker.SearchRequest, sessionID string) *viralworker.SearchResult {
	c.logger.WithFields(logging.Fields{
		"query":      payload.Query,
		"session_id": sessionID,
	}).Info("searching viral content")

	if !c.workerAvailable(ctx) {
		c.logger.Warn("viral worker unavailable, trying direct request")
		return c.searchDirect(ctx, payload, sessionID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.WithError(err).Error("failed to marshal search request")
		return c.fallbackResult(payload.Query, sessionID)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return c.fallbackResult(payload.Query, sessionID)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	retryCfg := clients.RetryConfig{
		MaxRetries: c.maxRetries - 1,
		BaseDelay:  c.retryBaseDelay,
		MaxDelay:   c.retryBaseDelay << uint(c.maxRetries),
		Multiplier: 2.0,
		RetryFunc:  clients.RetryOnNon200,
	}

	resp, err := clients.DoWithRetry(ctx, c.searchClient, req, retryCfg)
	if err != nil {
		c.logger.WithError(err).Error("viral search failed after retries")
		return c.fallbackResult(payload.Query, sessionID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Error("viral search exhausted retries")
		return c.fallbackResult(payload.Query, sessionID)
	}

	var searchResp viralworker.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		c.logger.WithError(err).Error("failed to decode viral search response")
		return c.fallbackResult(payload.Query, sessionID)
	}

	c.logger.WithField("images", len(searchResp.Images)).Info("viral search completed")
	return c.processResults(ctx, &searchResp, sessionID)
}

// searchDirect is the single-shot lifeline used when the health probe fails.
// A different, simpler request strategy is cheaper than retrying the same
// failure mode.
func (c *Client) searchDirect(ctx context.Context, payload viralworker.SearchRequest, sessionID string) *viralworker.SearchResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return c.fallbackResult(payload.Query, sessionID)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return c.fallbackResult(payload.Query, sessionID)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.searchClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("direct viral search failed")
		return c.fallbackResult(payload.Query, sessionID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Error("direct viral search rejected")
		return c.fallbackResult(payload.Query, sessionID)
	}

	var searchResp viralworker.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		c.logger.WithError(err).Error("failed to decode direct search response")
		return c.fallbackResult(payload.Query, sessionID)
	}

	return c.processResults(ctx, &searchResp, sessionID)
}

// workerAvailable probes the worker's listing endpoint. A 404 still proves
// the server process is reachable, so it counts as available.
func (c *Client) workerAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/searches", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.probeClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("viral worker health check failed")
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return true
	}
	c.logger.WithField("status", resp.StatusCode).Warn("viral worker health check returned unexpected status")
	return false
}

func (c *Client) doQuick(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	return clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.quickClient.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
}

// History lists prior worker searches, newest first, up to limit entries.
// A non-positive limit yields no entries. Any failure yields an empty slice;
// history is best effort.
func (c *Client) History(ctx context.Context, limit int) []viralworker.SearchSummary {
	if limit <= 0 {
		return []viralworker.SearchSummary{}
	}

	resp, err := c.doQuick(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/searches", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", version.UserAgent())
		return req, nil
	})
	if err != nil {
		c.logger.WithError(err).Error("failed to fetch viral search history")
		return []viralworker.SearchSummary{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Warn("viral search history unavailable")
		return []viralworker.SearchSummary{}
	}

	var summaries []viralworker.SearchSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		c.logger.WithError(err).Error("failed to decode viral search history")
		return []viralworker.SearchSummary{}
	}

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// GetSearchByID fetches one prior search. The second return value reports
// whether the record exists; 404 and transport failures both read as absence.
func (c *Client) GetSearchByID(ctx context.Context, searchID string) (*viralworker.SearchRecord, bool) {
	reqURL := fmt.Sprintf("%s/api/search/%s", c.baseURL, url.PathEscape(searchID))

	resp, err := c.doQuick(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", version.UserAgent())
		return req, nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("search_id", searchID).Error("failed to fetch viral search")
		return nil, false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logging.Fields{
			"search_id": searchID,
			"status":    resp.StatusCode,
		}).Warn("viral search not found")
		return nil, false
	}

	var record viralworker.SearchRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		c.logger.WithError(err).Error("failed to decode viral search record")
		return nil, false
	}
	return &record, true
}
