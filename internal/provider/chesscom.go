// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/pgn"
)

// maxArchiveBody bounds one monthly archive download.
const maxArchiveBody = 64 << 20

var archiveMonth = regexp.MustCompile(`/(\d{4})/(\d{2})/?$`)

type archiveList struct {
	Archives []string `json:"archives"`
}

type archiveGame struct {
	UUID    string `json:"uuid"`
	URL     string `json:"url"`
	PGN     string `json:"pgn"`
	EndTime int64  `json:"end_time"`
	Rated   *bool  `json:"rated"`
}

type archiveBody struct {
	Games []archiveGame `json:"games"`
}

// month is one archive, ordered by (year, month).
type month struct {
	year  int
	month time.Month
	url   string
}

func (m month) before(o month) bool {
	if m.year != o.year {
		return m.year < o.year
	}
	return m.month < o.month
}

// ChessComAdapter imports from the public monthly archive API.
//
// Every request is paced by a token bucket and retried on 429 or network
// failure with exponential backoff, honoring Retry-After. Past-month
// archives are immutable and served from the ArchiveCache when present.
type ChessComAdapter struct {
	baseURL     string
	userAgent   string
	maxGames    int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	http    Doer
	cache   ArchiveCache
	limiter *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewChessComAdapter creates the adapter. cache may be nil.
func NewChessComAdapter(cfg config.ChessComConfig, doer Doer, cache ArchiveCache) *ChessComAdapter {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &ChessComAdapter{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		maxGames:    cfg.MaxGames,
		maxAttempts: attempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		http:        doer,
		cache:       cache,
		limiter:     rate.NewLimiter(limit, 1),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Source implements Adapter.
func (a *ChessComAdapter) Source() models.Source { return models.SourceChessCom }

// ImportGames lists the player's archives, keeps the months at or after
// since (minus a one month margin) and walks them newest first until max
// games have been collected.
func (a *ChessComAdapter) ImportGames(ctx context.Context, opts ImportOptions) ([]FetchedGame, error) {
	username := strings.ToLower(strings.TrimSpace(opts.Username))
	if username == "" {
		return nil, apperrors.NewValidationError("username", "is required for chesscom imports")
	}

	listURL := fmt.Sprintf("%s/pub/player/%s/games/archives", a.baseURL, url.PathEscape(username))
	body, err := a.get(ctx, listURL)
	if err != nil {
		return nil, err
	}
	var list archiveList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &apperrors.ProviderFetchError{Provider: string(models.SourceChessCom), URL: listURL, Attempts: 1, Err: fmt.Errorf("decode archive list: %w", err)}
	}

	months := selectMonths(list.Archives, opts.Since)
	limit := maxOrDefault(opts.Max, a.maxGames)
	current := monthOf(a.now().UTC())

	var games []FetchedGame
	for _, m := range months {
		archive, err := a.archive(ctx, m, m.before(current))
		if err != nil {
			return nil, err
		}

		// Archives list games oldest first.
		for i := len(archive.Games) - 1; i >= 0; i-- {
			fg, ok := toFetchedGame(archive.Games[i], opts.Since)
			if !ok {
				continue
			}
			games = append(games, fg)
			if limit > 0 && len(games) >= limit {
				return games, nil
			}
		}
	}

	logging.Ctx(ctx).Debug().
		Str("username", username).
		Int("archives", len(months)).
		Int("games", len(games)).
		Msg("Chess.com archives fetched")

	return games, nil
}

// selectMonths parses archive URLs and returns those not older than one
// month before since, newest first. Unparseable URLs are dropped.
func selectMonths(urls []string, since *time.Time) []month {
	var cutoff *month
	if since != nil {
		c := monthOf(since.UTC().AddDate(0, -1, 0))
		cutoff = &c
	}

	months := make([]month, 0, len(urls))
	for _, u := range urls {
		m := archiveMonth.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		if mon < 1 || mon > 12 {
			continue
		}
		entry := month{year: year, month: time.Month(mon), url: u}
		if cutoff != nil && entry.before(*cutoff) {
			continue
		}
		months = append(months, entry)
	}
	sort.SliceStable(months, func(i, j int) bool { return months[j].before(months[i]) })
	return months
}

func monthOf(t time.Time) month {
	return month{year: t.Year(), month: t.Month()}
}

func (a *ChessComAdapter) archive(ctx context.Context, m month, immutable bool) (*archiveBody, error) {
	var body []byte
	cached := false
	if immutable && a.cache != nil {
		b, ok, err := a.cache.Get(ctx, m.url)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("archive", m.url).Msg("Archive cache read failed")
		} else if ok {
			body, cached = b, true
			metrics.ArchiveCacheHits.Inc()
		}
	}

	if !cached {
		metrics.ArchiveCacheMisses.Inc()
		var err error
		body, err = a.get(ctx, m.url)
		if err != nil {
			return nil, err
		}
	}

	var archive archiveBody
	if err := json.Unmarshal(body, &archive); err != nil {
		return nil, &apperrors.ProviderFetchError{Provider: string(models.SourceChessCom), URL: m.url, Attempts: 1, Err: fmt.Errorf("decode archive: %w", err)}
	}

	if immutable && !cached && a.cache != nil {
		if err := a.cache.Put(ctx, m.url, body); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("archive", m.url).Msg("Archive cache write failed")
		}
	}
	return &archive, nil
}

func toFetchedGame(g archiveGame, since *time.Time) (FetchedGame, bool) {
	var playedAt *time.Time
	if g.EndTime > 0 {
		t := time.Unix(g.EndTime, 0).UTC()
		if since != nil && t.Before(*since) {
			return FetchedGame{}, false
		}
		playedAt = &t
	}

	game, ok := pgn.ParseGame(strings.ReplaceAll(g.PGN, "\r\n", "\n"))
	if !ok {
		return FetchedGame{}, false
	}
	if playedAt == nil {
		playedAt = game.PlayedAt()
	}

	return FetchedGame{
		ProviderGameID: g.UUID,
		PGN:            g.PGN,
		Game:           game,
		PlayedAt:       playedAt,
		Rated:          g.Rated,
	}, true
}

// get performs a paced GET with retry on 429 and network errors.
func (a *ChessComAdapter) get(ctx context.Context, reqURL string) ([]byte, error) {
	provider := string(models.SourceChessCom)
	var (
		lastErr    error
		lastStatus int
	)

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		delay := a.backoff(attempt)
		body, status, retryAfter, err := a.do(ctx, reqURL)
		switch {
		case err == nil:
			return body, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case isBreakerRejection(err):
			return nil, &apperrors.ProviderFetchError{Provider: provider, URL: reqURL, Attempts: attempt, Err: err}
		case status != 0 && status != http.StatusTooManyRequests:
			// Definitive answer from the server (404 unknown player, 403, ...).
			return nil, &apperrors.ProviderFetchError{Provider: provider, URL: reqURL, StatusCode: status, Attempts: attempt, Err: err}
		}

		lastErr, lastStatus = err, status
		if retryAfter > 0 {
			delay = retryAfter
			if a.maxDelay > 0 && delay > a.maxDelay {
				delay = a.maxDelay
			}
		}
		if attempt == a.maxAttempts {
			break
		}

		metrics.ProviderRetries.WithLabelValues(provider).Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("url", reqURL).
			Int("attempt", attempt).
			Int("max_attempts", a.maxAttempts).
			Dur("retry_delay", delay).
			Msg("Chess.com request failed, retrying")

		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &apperrors.ProviderFetchError{
		Provider:   provider,
		URL:        reqURL,
		StatusCode: lastStatus,
		Attempts:   a.maxAttempts,
		Err:        lastErr,
	}
}

// do sends one request. status is zero for network errors.
func (a *ChessComAdapter) do(ctx context.Context, reqURL string) (body []byte, status int, retryAfter time.Duration, err error) {
	provider := string(models.SourceChessCom)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			metrics.RecordProviderRequest(provider, "http_error", time.Since(start))
			// 5xx is transient; report it like a network failure so it is retried.
			return nil, 0, 0, err
		}
		metrics.RecordProviderRequest(provider, "network_error", time.Since(start))
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxArchiveBody))
		if err != nil {
			metrics.RecordProviderRequest(provider, "network_error", time.Since(start))
			return nil, 0, 0, fmt.Errorf("read body: %w", err)
		}
		metrics.RecordProviderRequest(provider, "ok", time.Since(start))
		return body, resp.StatusCode, 0, nil
	case http.StatusTooManyRequests:
		metrics.RecordProviderRequest(provider, "rate_limited", time.Since(start))
		return nil, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After"), a.now()),
			fmt.Errorf("rate limited (HTTP 429)")
	default:
		metrics.RecordProviderRequest(provider, "http_error", time.Since(start))
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

// backoff returns baseDelay * 2^(attempt-1), capped at maxDelay.
func (a *ChessComAdapter) backoff(attempt int) time.Duration {
	if a.baseDelay <= 0 {
		return 0
	}
	d := a.baseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if a.maxDelay > 0 && d >= a.maxDelay {
			return a.maxDelay
		}
	}
	if a.maxDelay > 0 && d > a.maxDelay {
		return a.maxDelay
	}
	return d
}

// parseRetryAfter accepts delta-seconds or an HTTP date (RFC 9110).
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
