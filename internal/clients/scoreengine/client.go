package scoreengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/plateful/plateful-backend/internal/domain"
	"github.com/plateful/plateful-backend/internal/platform/apierr"
	"github.com/plateful/plateful-backend/internal/platform/envutil"
	"github.com/plateful/plateful-backend/internal/platform/logger"
)

const (
	scoreEndpoint   = "/score/personal"
	connectTimeout  = 3 * time.Second
	responseTimeout = 10 * time.Second
	maxRetries      = 2
)

// ScoreRequest is the wire payload for a personal scoring call. The
// tag-preference vector carries per-tag score and confidence; each
// candidate carries its weighted tag profile.
type ScoreRequest struct {
	UserID      string                  `json:"user_id"`
	UserTagPref map[int64]types.TagPref `json:"user_tag_pref"`
	Candidates  []types.Candidate       `json:"candidates"`
	Debug       bool                    `json:"debug"`
}

// ScoreResponse mirrors the engine's response envelope.
type ScoreResponse struct {
	Scores      []types.ScoredItem `json:"-"`
	AlgoVersion string             `json:"algo_version"`
	ElapsedMs   int64              `json:"elapsed_ms"`
}

type Client interface {
	// ScorePersonal scores the candidate set for one user. Any
	// transport failure, non-2xx status, or malformed payload is a
	// hard error; callers must not build a pool on partial scores.
	ScorePersonal(ctx context.Context, userID uuid.UUID, tagPref map[int64]types.TagPref, candidates []types.Candidate, debug bool) (*ScoreResponse, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) Client {
	base := strings.TrimRight(envutil.Str("SCORE_API_BASE", "http://localhost:8000"), "/")
	return &client{
		log:     log.With("client", "ScoreEngine"),
		baseURL: base,
		httpClient: &http.Client{
			Timeout: responseTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
	}
}

// NewClientWithBase is used by tests to point the client at a stub.
func NewClientWithBase(log *logger.Logger, baseURL string, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: responseTimeout}
	}
	return &client{
		log:        log.With("client", "ScoreEngine"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// rawScore uses pointers so an absent or null field is distinguishable
// from a zero value; both are malformed.
type rawScore struct {
	RestaurantID *int64         `json:"restaurant_id"`
	Score        *float64       `json:"score"`
	Debug        map[string]any `json:"debug"`
}

type rawResponse struct {
	Scores      []rawScore `json:"scores"`
	AlgoVersion string     `json:"algo_version"`
	ElapsedMs   int64      `json:"elapsed_ms"`
}

func (c *client) ScorePersonal(ctx context.Context, userID uuid.UUID, tagPref map[int64]types.TagPref, candidates []types.Candidate, debug bool) (*ScoreResponse, error) {
	if tagPref == nil {
		tagPref = map[int64]types.TagPref{}
	}
	payload := ScoreRequest{
		UserID:      userID.String(),
		UserTagPref: tagPref,
		Candidates:  candidates,
		Debug:       debug,
	}

	raw, err := c.doWithRetry(ctx, payload)
	if err != nil {
		return nil, apierr.Upstream("score_engine_unavailable", err)
	}

	var decoded rawResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apierr.Upstream("score_engine_malformed", fmt.Errorf("decode score response: %w", err))
	}

	out := &ScoreResponse{
		Scores:      make([]types.ScoredItem, 0, len(decoded.Scores)),
		AlgoVersion: decoded.AlgoVersion,
		ElapsedMs:   decoded.ElapsedMs,
	}
	for i, s := range decoded.Scores {
		if s.RestaurantID == nil || s.Score == nil {
			return nil, apierr.Upstream("score_engine_malformed",
				fmt.Errorf("score entry %d missing restaurant_id or score", i))
		}
		out.Scores = append(out.Scores, types.ScoredItem{
			RestaurantID: *s.RestaurantID,
			Score:        *s.Score,
			Debug:        s.Debug,
		})
	}
	return out, nil
}

func (c *client) doWithRetry(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, err := c.doOnce(ctx, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		c.log.Warn("score engine request retrying",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *client) doOnce(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scoreEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("score engine status %d: %s", resp.StatusCode, truncate(string(raw), 256))
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
