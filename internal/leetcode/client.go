// Package leetcode talks to the upstream judge's GraphQL endpoint.
package leetcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"

	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/pkg/tracker"
)

// ErrUserNotFound means the username has no profile upstream. Callers skip
// the user rather than failing the batch.
var ErrUserNotFound = errors.New("user not found upstream")

const profileQuery = `query getUserProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile {
      realName
      userAvatar
      ranking
    }
    submitStatsGlobal {
      acSubmissionNum {
        difficulty
        count
      }
    }
    userCalendar {
      streak
      totalActiveDays
      submissionCalendar
    }
  }
}`

type Options struct {
	Timeout     time.Duration
	Retries     int
	CacheSizeMB int
	CacheTTL    time.Duration
}

type Client struct {
	BaseURL string
	HTTP    *http.Client

	retries  int
	cache    *freecache.Cache
	cacheTTL int
}

func New(base string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}

	c := &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: opts.Timeout},
		retries: opts.Retries,
	}
	if opts.CacheSizeMB > 0 && opts.CacheTTL > 0 {
		c.cache = freecache.NewCache(opts.CacheSizeMB * 1024 * 1024)
		c.cacheTTL = int(opts.CacheTTL.Seconds())
	}
	return c
}

// FetchProfile fetches the profile, solve counts and submission calendar for
// one user. Responses are cached briefly so a manual refresh overlapping the
// scheduled one does not hit the upstream twice per user.
func (c *Client) FetchProfile(ctx context.Context, username string) (*tracker.Profile, error) {
	body, err := c.fetchRaw(ctx, username)
	if err != nil {
		return nil, err
	}
	return parseProfile(username, body)
}

func (c *Client) fetchRaw(ctx context.Context, username string) ([]byte, error) {
	cacheKey := []byte(username)
	if c.cache != nil {
		if cached, err := c.cache.Get(cacheKey); err == nil {
			logger.Debug("Upstream cache hit", "username", username)
			return cached, nil
		}
	}

	payload, err := json.Marshal(map[string]any{
		"query":     profileQuery,
		"variables": map[string]string{"username": username},
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryable, err := c.doRequest(ctx, payload)
		if err == nil {
			if c.cache != nil {
				_ = c.cache.Set(cacheKey, body, c.cacheTTL)
			}
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		logger.Warn("Upstream fetch failed, retrying", "username", username,
			"attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", username, c.retries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", c.BaseURL)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("upstream status %s", res.Status)
	}
	if res.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("upstream status %s", res.Status)
	}

	body, err = io.ReadAll(res.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

type gqlResponse struct {
	Data struct {
		MatchedUser *struct {
			Username string `json:"username"`
			Profile  struct {
				RealName   string `json:"realName"`
				UserAvatar string `json:"userAvatar"`
				Ranking    int    `json:"ranking"`
			} `json:"profile"`
			SubmitStatsGlobal struct {
				AcSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStatsGlobal"`
			UserCalendar struct {
				Streak             int    `json:"streak"`
				TotalActiveDays    int    `json:"totalActiveDays"`
				SubmissionCalendar string `json:"submissionCalendar"`
			} `json:"userCalendar"`
		} `json:"matchedUser"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func parseProfile(username string, body []byte) (*tracker.Profile, error) {
	var resp gqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding profile for %s: %w", username, err)
	}
	if resp.Data.MatchedUser == nil {
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, resp.Errors[0].Message)
		}
		return nil, ErrUserNotFound
	}

	u := resp.Data.MatchedUser
	p := &tracker.Profile{
		Username:        u.Username,
		RealName:        u.Profile.RealName,
		Avatar:          u.Profile.UserAvatar,
		Ranking:         max(0, u.Profile.Ranking),
		ReportedStreak:  max(0, u.UserCalendar.Streak),
		TotalActiveDays: max(0, u.UserCalendar.TotalActiveDays),
	}

	for _, s := range u.SubmitStatsGlobal.AcSubmissionNum {
		count := max(0, s.Count)
		switch s.Difficulty {
		case "Easy":
			p.EasySolved = count
		case "Medium":
			p.MediumSolved = count
		case "Hard":
			p.HardSolved = count
		}
	}
	p.TotalSolved = p.EasySolved + p.MediumSolved + p.HardSolved

	cal, err := ParseCalendar(u.UserCalendar.SubmissionCalendar)
	if err != nil {
		// A broken calendar is a data-quality issue, not a fetch failure:
		// keep the counts and let the streak engine see an empty calendar.
		logger.Warn("Discarding malformed submission calendar", "username", username, "error", err)
		cal = tracker.Calendar{}
	}
	p.Calendar = cal

	return p, nil
}

// ParseCalendar decodes the text-encoded calendar JSON the upstream embeds in
// its response: a map of string day timestamps to submission counts. Negative
// counts clamp to zero, unparseable keys are dropped.
func ParseCalendar(raw string) (tracker.Calendar, error) {
	cal := tracker.Calendar{}
	if raw == "" || raw == "{}" {
		return cal, nil
	}

	var entries map[string]int
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decoding submission calendar: %w", err)
	}
	for key, count := range entries {
		ts, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		cal[ts] = max(0, count)
	}
	return cal, nil
}
