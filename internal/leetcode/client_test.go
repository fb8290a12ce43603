package leetcode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceResponse = `{
  "data": {
    "matchedUser": {
      "username": "alice",
      "profile": {"realName": "Alice", "userAvatar": "https://img/a.png", "ranking": 1234},
      "submitStatsGlobal": {
        "acSubmissionNum": [
          {"difficulty": "All", "count": 52},
          {"difficulty": "Easy", "count": 30},
          {"difficulty": "Medium", "count": 18},
          {"difficulty": "Hard", "count": 4}
        ]
      },
      "userCalendar": {
        "streak": 3,
        "totalActiveDays": 40,
        "submissionCalendar": "{\"1704067200\": 2, \"1704153600\": 1}"
      }
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, Options{Timeout: 2 * time.Second, Retries: 3})
}

func TestFetchProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql", r.URL.Path)
		fmt.Fprint(w, aliceResponse)
	})

	p, err := c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, 1234, p.Ranking)
	assert.Equal(t, 30, p.EasySolved)
	assert.Equal(t, 18, p.MediumSolved)
	assert.Equal(t, 4, p.HardSolved)
	assert.Equal(t, 52, p.TotalSolved)
	assert.Equal(t, 3, p.ReportedStreak)
	assert.Equal(t, 40, p.TotalActiveDays)
	assert.Equal(t, 2, p.Calendar[1704067200])
	assert.Equal(t, 1, p.Calendar[1704153600])
}

func TestFetchProfile_UserNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"matchedUser": null}, "errors": [{"message": "That user does not exist."}]}`)
	})

	_, err := c.FetchProfile(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestFetchProfile_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, aliceResponse)
	})

	p, err := c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchProfile_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.FetchProfile(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchProfile_CachesResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, aliceResponse)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Timeout: time.Second, Retries: 1, CacheSizeMB: 1, CacheTTL: time.Minute})

	_, err := c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)
	_, err = c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchProfile_MalformedCalendarKeepsCounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"matchedUser": {
			"username": "alice",
			"submitStatsGlobal": {"acSubmissionNum": [{"difficulty": "Easy", "count": 5}]},
			"userCalendar": {"streak": 1, "submissionCalendar": "not json"}
		}}}`)
	})

	p, err := c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalSolved)
	assert.Empty(t, p.Calendar)
}

func TestParseCalendar(t *testing.T) {
	cal, err := ParseCalendar(`{"1704067200": 2, "1704153600": -1, "bogus": 3}`)
	require.NoError(t, err)

	assert.Equal(t, 2, cal[1704067200])
	assert.Equal(t, 0, cal[1704153600], "negative counts clamp to zero")
	assert.Len(t, cal, 2, "unparseable keys are dropped")
}

func TestParseCalendar_Empty(t *testing.T) {
	cal, err := ParseCalendar("")
	require.NoError(t, err)
	assert.Empty(t, cal)

	cal, err = ParseCalendar("{}")
	require.NoError(t, err)
	assert.Empty(t, cal)
}
