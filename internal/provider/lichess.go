// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/pgn"
)

// maxNDJSONLine bounds a single exported game. Exports without clocks stay
// far below this.
const maxNDJSONLine = 4 << 20

// backfillOrder is the order injected headers are written in.
var backfillOrder = []string{"ECO", "Opening", "TimeControl"}

// lichessGame is one NDJSON line of the export endpoint.
type lichessGame struct {
	ID        string `json:"id"`
	Rated     *bool  `json:"rated"`
	Speed     string `json:"speed"`
	CreatedAt int64  `json:"createdAt"`
	PGN       string `json:"pgn"`
	Opening   *struct {
		ECO  string `json:"eco"`
		Name string `json:"name"`
	} `json:"opening"`
	Clock *struct {
		Initial   int `json:"initial"`
		Increment int `json:"increment"`
	} `json:"clock"`
}

// LichessAdapter imports from the streaming game export API.
type LichessAdapter struct {
	baseURL  string
	maxGames int
	http     Doer
}

// NewLichessAdapter creates the adapter. doer is usually a BreakerClient.
func NewLichessAdapter(cfg config.LichessConfig, doer Doer) *LichessAdapter {
	return &LichessAdapter{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxGames: cfg.MaxGames,
		http:     doer,
	}
}

// Source implements Adapter.
func (a *LichessAdapter) Source() models.Source { return models.SourceLichess }

// ImportGames issues one export request and parses every line of the stream.
// Lines that fail to decode or hold no playable PGN are skipped.
func (a *LichessAdapter) ImportGames(ctx context.Context, opts ImportOptions) ([]FetchedGame, error) {
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username", "is required for lichess imports")
	}

	reqURL := a.exportURL(username, opts)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(string(models.SourceLichess), "network_error", time.Since(start))
		return nil, &apperrors.ProviderFetchError{Provider: string(models.SourceLichess), URL: reqURL, Attempts: 1, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result := "http_error"
		if resp.StatusCode == http.StatusTooManyRequests {
			result = "rate_limited"
		}
		metrics.RecordProviderRequest(string(models.SourceLichess), result, time.Since(start))
		return nil, &apperrors.ProviderFetchError{
			Provider:   string(models.SourceLichess),
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Attempts:   1,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var games []FetchedGame
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxNDJSONLine)
	skipped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		fg, ok := parseLichessLine(line)
		if !ok {
			skipped++
			continue
		}
		games = append(games, fg)
	}
	metrics.RecordProviderRequest(string(models.SourceLichess), "ok", time.Since(start))

	if err := scanner.Err(); err != nil {
		return nil, &apperrors.ProviderFetchError{
			Provider: string(models.SourceLichess),
			URL:      reqURL,
			Attempts: 1,
			Err:      fmt.Errorf("read export stream: %w", err),
		}
	}

	logging.Ctx(ctx).Debug().
		Str("username", username).
		Int("games", len(games)).
		Int("skipped", skipped).
		Msg("Lichess export fetched")

	return games, nil
}

func (a *LichessAdapter) exportURL(username string, opts ImportOptions) string {
	q := url.Values{}
	q.Set("pgnInJson", "true")
	q.Set("opening", "true")
	q.Set("clocks", "false")
	if max := maxOrDefault(opts.Max, a.maxGames); max > 0 {
		q.Set("max", strconv.Itoa(max))
	}
	if opts.Since != nil {
		q.Set("since", strconv.FormatInt(opts.Since.UnixMilli(), 10))
	}
	return fmt.Sprintf("%s/api/games/user/%s?%s", a.baseURL, url.PathEscape(username), q.Encode())
}

func parseLichessLine(line []byte) (FetchedGame, bool) {
	var lg lichessGame
	if err := json.Unmarshal(line, &lg); err != nil {
		logging.Debug().Err(err).Msg("Skipping undecodable lichess export line")
		return FetchedGame{}, false
	}
	if strings.TrimSpace(lg.PGN) == "" {
		return FetchedGame{}, false
	}

	backfill := map[string]string{}
	if lg.Opening != nil {
		backfill["ECO"] = lg.Opening.ECO
		backfill["Opening"] = lg.Opening.Name
	}
	if lg.Clock != nil {
		backfill["TimeControl"] = fmt.Sprintf("%d+%d", lg.Clock.Initial, lg.Clock.Increment)
	}
	text := pgn.InjectHeaders(lg.PGN, backfill, backfillOrder)

	game, ok := pgn.ParseGame(text)
	if !ok {
		return FetchedGame{}, false
	}

	playedAt := game.PlayedAt()
	if lg.CreatedAt > 0 {
		t := time.UnixMilli(lg.CreatedAt).UTC()
		playedAt = &t
	}

	rated := lg.Rated
	if rated == nil {
		if v := game.Header("Event"); v != "" {
			rated = boolPtr(strings.Contains(strings.ToLower(v), "rated") && !strings.Contains(strings.ToLower(v), "casual"))
		}
	}

	return FetchedGame{
		ProviderGameID: lg.ID,
		PGN:            text,
		Game:           game,
		PlayedAt:       playedAt,
		Rated:          rated,
	}, true
}
