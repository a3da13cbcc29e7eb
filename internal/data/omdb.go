package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cinecrowd/internal/biz"
	"cinecrowd/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultMetadataTimeout = 5 * time.Second
	breakerFailureRatio    = 0.6
	breakerMinRequests     = 5
)

type omdbClient struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	breaker    *gobreaker.CircuitBreaker[*biz.ExternalMovie]
	log        *log.Helper
}

// omdbResponse mirrors the provider's payload. Missing values come back as "N/A".
type omdbResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Writer     string `json:"Writer"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Awards     string `json:"Awards"`
	Poster     string `json:"Poster"`
	Metascore  string `json:"Metascore"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID"`
}

// NewMetadataClient creates the metadata provider client, or nil when no
// provider URL is configured.
func NewMetadataClient(c *conf.Metadata, logger log.Logger) biz.MetadataClient {
	if c == nil || c.Url == "" {
		log.NewHelper(logger).Warn("metadata provider not configured")
		return nil
	}
	return newOMDBClient(c, logger)
}

func newOMDBClient(c *conf.Metadata, logger log.Logger) *omdbClient {
	l := log.NewHelper(logger)
	timeout := c.Timeout.AsDuration()
	if timeout <= 0 {
		timeout = defaultMetadataTimeout
	}
	return &omdbClient{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(c.Url, "/"),
		apiKey:     c.ApiKey,
		maxRetries: int(c.MaxRetries),
		breaker: gobreaker.NewCircuitBreaker[*biz.ExternalMovie](gobreaker.Settings{
			Name:        "metadata",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= breakerMinRequests && ratio >= breakerFailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			},
			// An unknown title is a valid answer, not a provider failure.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, biz.ErrMetadataNotFound)
			},
		}),
		log: l,
	}
}

func (c *omdbClient) Lookup(ctx context.Context, q *biz.MetadataQuery) (*biz.ExternalMovie, error) {
	md, err := c.breaker.Execute(func() (*biz.ExternalMovie, error) {
		return c.lookupWithRetry(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", biz.ErrUpstream, err)
	}
	return md, err
}

func (c *omdbClient) lookupWithRetry(ctx context.Context, q *biz.MetadataQuery) (*biz.ExternalMovie, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", biz.ErrUpstream, ctx.Err())
			case <-time.After(backoff):
			}
			c.log.Infof("retrying metadata request, attempt %d/%d", attempt, c.maxRetries)
		}

		md, err := c.doRequest(ctx, q)
		if err == nil {
			return md, nil
		}
		lastErr = err

		// Don't retry on not found
		if errors.Is(err, biz.ErrMetadataNotFound) {
			return nil, err
		}
	}

	c.log.Warnf("metadata request failed after %d attempts: %v", c.maxRetries+1, lastErr)
	return nil, lastErr
}

func (c *omdbClient) doRequest(ctx context.Context, q *biz.MetadataQuery) (*biz.ExternalMovie, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	if q.ExternalID != "" {
		params.Set("i", q.ExternalID)
	}
	if q.Title != "" {
		params.Set("t", q.Title)
	}
	if q.Year != "" {
		params.Set("y", q.Year)
	}
	if q.Plot != "" {
		params.Set("plot", q.Plot)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", biz.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, biz.ErrMetadataNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", biz.ErrUpstream, resp.StatusCode)
	}

	var body omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", biz.ErrUpstream, err)
	}
	if !strings.EqualFold(body.Response, "true") {
		if strings.Contains(strings.ToLower(body.Error), "not found") {
			return nil, biz.ErrMetadataNotFound
		}
		return nil, fmt.Errorf("%w: provider error: %s", biz.ErrUpstream, body.Error)
	}

	return &biz.ExternalMovie{
		ExternalID: body.ImdbID,
		Title:      body.Title,
		YearText:   body.Year,
		PosterURL:  body.Poster,
		Director:   notAvailable(body.Director),
		Plot:       notAvailable(body.Plot),
		Runtime:    notAvailable(body.Runtime),
		Awards:     notAvailable(body.Awards),
		Language:   notAvailable(body.Language),
		Genre:      notAvailable(body.Genre),
		Actors:     notAvailable(body.Actors),
		Writer:     notAvailable(body.Writer),
		Country:    notAvailable(body.Country),
		Metascore:  notAvailable(body.Metascore),
		Rated:      notAvailable(body.Rated),
		Rating10:   body.ImdbRating,
	}, nil
}

// notAvailable maps the provider's "N/A" placeholder to an empty string.
func notAvailable(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "N/A") {
		return ""
	}
	return s
}
