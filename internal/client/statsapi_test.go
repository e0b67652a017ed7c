package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runpool/ingestion/internal/parser"
)

const scheduleJSON = `{
  "dates": [{
    "date": "2024-07-01",
    "games": [
      {
        "gamePk": 745123,
        "gameDate": "2024-07-01T23:07:00Z",
        "officialDate": "2024-07-01",
        "status": {"detailedState": "Final"},
        "teams": {
          "away": {"score": 3, "team": {"id": 111, "name": "Boston Red Sox"}},
          "home": {"score": 7, "team": {"id": 141, "name": "Toronto Blue Jays"}}
        }
      },
      {
        "gamePk": 745124,
        "gameDate": "2024-07-02T00:10:00Z",
        "officialDate": "2024-07-01",
        "status": {"detailedState": "In Progress"},
        "teams": {
          "away": {"score": 1, "team": {"id": 147, "name": "New York Yankees"}},
          "home": {"score": 0, "team": {"id": 110, "name": "Baltimore Orioles"}}
        },
        "linescore": {"currentInningOrdinal": "5th", "inningState": "Top"}
      },
      {
        "gamePk": 745125,
        "gameDate": "2024-07-02T02:10:00Z",
        "officialDate": "2024-07-01",
        "status": {"detailedState": "Scheduled"},
        "teams": {
          "away": {"team": {"id": 119, "name": "Los Angeles Dodgers"}},
          "home": {"team": {"id": 135, "name": "San Diego Padres"}}
        }
      },
      {
        "gamePk": 745126,
        "gameDate": "2024-07-01T17:05:00Z",
        "officialDate": "2024-07-01",
        "status": {"detailedState": "Completed Early: Rain"},
        "teams": {
          "away": {"score": 2, "team": {"id": 112, "name": "Chicago Cubs"}},
          "home": {"score": 4, "team": {"id": 138, "name": "St. Louis Cardinals"}}
        }
      }
    ]
  }]
}`

func newTestClient(url string) *Client {
	return NewClient(url, 1, 5*time.Second,
		WithRateLimit(1000, 10),
		WithRetry(2, time.Millisecond),
	)
}

func TestClient_FetchSchedule(t *testing.T) {
	var gotQuery atomic.Value

	r := chi.NewRouter()
	r.Get("/api/v1/schedule", func(w http.ResponseWriter, req *http.Request) {
		gotQuery.Store(req.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(scheduleJSON))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	games, err := newTestClient(srv.URL).FetchSchedule(context.Background(), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, games, 4)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, []string{"1"}, q["sportId"])
	assert.Equal(t, []string{"07/01/2024"}, q["date"])

	assert.Equal(t, int64(745123), games[0].ID)
	assert.Equal(t, "2024-07-01T23:07:00Z", games[0].DateTime)
	assert.Equal(t, "2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (7) (Final)", games[0].Summary)
	assert.Equal(t, "2024-07-01 - New York Yankees (1) @ Baltimore Orioles (0) (Top 5th)", games[1].Summary)
	assert.Equal(t, "2024-07-01 - Los Angeles Dodgers @ San Diego Padres (Scheduled)", games[2].Summary)
	assert.Equal(t, "2024-07-01 - Chicago Cubs (2) @ St. Louis Cardinals (4) (Completed Early)", games[3].Summary)

	// The rendered summaries round-trip through the parser
	_, reason := parser.ParseSummary(games[0].Summary)
	assert.Equal(t, parser.SkipNone, reason)
	_, reason = parser.ParseSummary(games[1].Summary)
	assert.Equal(t, parser.SkipNotFinal, reason)
	_, reason = parser.ParseSummary(games[2].Summary)
	assert.Equal(t, parser.SkipScheduled, reason)
	summary, reason := parser.ParseSummary(games[3].Summary)
	assert.Equal(t, parser.SkipNone, reason)
	assert.True(t, summary.Final)
}

func TestClient_FetchSchedule_EmptyDay(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/schedule", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"dates": []}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	games, err := newTestClient(srv.URL).FetchSchedule(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	r := chi.NewRouter()
	r.Get("/api/v1/schedule", func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(scheduleJSON))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	games, err := newTestClient(srv.URL).FetchSchedule(context.Background(), time.Now())
	require.NoError(t, err, "Should succeed after retries")
	assert.Len(t, games, 4)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	r := chi.NewRouter()
	r.Get("/api/v1/schedule", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSchedule(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, crerr.Is(err, ErrTransient))
	assert.Equal(t, int32(3), calls.Load(), "One attempt plus two retries")
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	r := chi.NewRouter()
	r.Get("/api/v1/schedule", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSchedule(context.Background(), time.Now())
	require.Error(t, err)
	assert.False(t, crerr.Is(err, ErrTransient))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MalformedBody(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/schedule", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSchedule(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, crerr.Is(err, ErrMalformedSchedule))
}
