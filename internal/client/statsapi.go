// Package client talks to the MLB StatsAPI schedule endpoint.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"runpool/ingestion/internal/metrics"
	"runpool/ingestion/internal/models"
)

// ScheduleDateFormat is the date layout the schedule endpoint expects
const ScheduleDateFormat = "01/02/2006"

const schedulePath = "/api/v1/schedule"

var (
	// ErrTransient marks failures worth retrying (network, 429, 5xx)
	ErrTransient = crerr.New("statsapi transient failure")
	// ErrMalformedSchedule marks a response body that is not a schedule
	ErrMalformedSchedule = crerr.New("statsapi malformed schedule")
)

// Client is the MLB StatsAPI client
type Client struct {
	baseURL    string
	sportID    int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithRateLimit caps outgoing requests per second
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets how many times a transient failure is retried and the base backoff
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a StatsAPI client
func NewClient(baseURL string, sportID int, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sportID:    sportID,
		limiter:    rate.NewLimiter(rate.Limit(5), 2),
		maxRetries: 3,
		retryDelay: time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET with exponential backoff on transient failures
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", u).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, crerr.Wrap(ctx.Err(), "waiting to retry")
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, crerr.Wrap(err, "rate limit wait")
		}

		body, err := c.do(ctx, u, attempt)
		if err == nil {
			return body, nil
		}
		if !crerr.Is(err, ErrTransient) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, u string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "runpool-ingestion/1.0")

	log.Debug().
		Str("url", u).
		Int("attempt", attempt+1).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall("schedule", "network_error", time.Since(start).Seconds())
		if ctx.Err() != nil {
			return nil, crerr.Wrap(err, "request cancelled")
		}
		return nil, crerr.Mark(crerr.Wrap(err, "send request"), ErrTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall("schedule", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "read response body"), ErrTransient)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", u).
			Int("size", len(body)).
			Msg("API request successful")
		return body, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Warn().
			Str("url", u).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable error")
		return nil, crerr.Mark(
			crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviate(body)),
			ErrTransient,
		)

	default:
		return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviate(body))
	}
}

func abbreviate(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

type scheduleResponse struct {
	Dates []struct {
		Date  string         `json:"date"`
		Games []scheduleGame `json:"games"`
	} `json:"dates"`
}

type scheduleGame struct {
	GamePk       int64  `json:"gamePk"`
	GameDate     string `json:"gameDate"`
	OfficialDate string `json:"officialDate"`
	Status       struct {
		DetailedState string `json:"detailedState"`
	} `json:"status"`
	Teams struct {
		Away scheduleSide `json:"away"`
		Home scheduleSide `json:"home"`
	} `json:"teams"`
	Linescore *struct {
		CurrentInningOrdinal string `json:"currentInningOrdinal"`
		InningState          string `json:"inningState"`
	} `json:"linescore"`
}

type scheduleSide struct {
	Score *int `json:"score"`
	Team  struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

// FetchSchedule returns every game the provider lists for a calendar date
func (c *Client) FetchSchedule(ctx context.Context, date time.Time) ([]models.ScheduleGame, error) {
	params := url.Values{}
	params.Set("sportId", strconv.Itoa(c.sportID))
	params.Set("date", date.Format(ScheduleDateFormat))
	params.Set("hydrate", "linescore")

	body, err := c.get(ctx, schedulePath, params)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch schedule for %s", date.Format(ScheduleDateFormat))
	}

	var resp scheduleResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "decode schedule"), ErrMalformedSchedule)
	}

	var games []models.ScheduleGame
	for _, d := range resp.Dates {
		for _, g := range d.Games {
			games = append(games, toScheduleGame(d.Date, g))
		}
	}

	log.Debug().
		Str("date", date.Format(ScheduleDateFormat)).
		Int("games", len(games)).
		Msg("Fetched schedule")

	return games, nil
}

// toScheduleGame renders the free-text summary the parser consumes
func toScheduleGame(date string, g scheduleGame) models.ScheduleGame {
	if g.OfficialDate != "" {
		date = g.OfficialDate
	}

	status := g.Status.DetailedState
	if strings.HasPrefix(status, "Completed Early") {
		status = "Completed Early"
	}

	away, home := g.Teams.Away, g.Teams.Home
	hasScores := away.Score != nil && home.Score != nil

	var summary string
	switch {
	case hasScores && (status == "Final" || status == "Game Over" || status == "Completed Early"):
		summary = fmt.Sprintf("%s - %s (%d) @ %s (%d) (%s)",
			date, away.Team.Name, *away.Score, home.Team.Name, *home.Score, status)
	case hasScores && status == "In Progress":
		inning := status
		if g.Linescore != nil && g.Linescore.InningState != "" {
			inning = strings.TrimSpace(g.Linescore.InningState + " " + g.Linescore.CurrentInningOrdinal)
		}
		summary = fmt.Sprintf("%s - %s (%d) @ %s (%d) (%s)",
			date, away.Team.Name, *away.Score, home.Team.Name, *home.Score, inning)
	default:
		summary = fmt.Sprintf("%s - %s @ %s (%s)", date, away.Team.Name, home.Team.Name, status)
	}

	return models.ScheduleGame{
		ID:       g.GamePk,
		DateTime: g.GameDate,
		Summary:  summary,
		Status:   status,
	}
}
