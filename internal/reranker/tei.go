package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
	"unicode/utf8"
)

// DefaultTruncateChars bounds the candidate text submitted to the scoring
// service. Cross-encoder inputs are token-limited; 500 characters keeps the
// pair comfortably under typical limits.
const DefaultTruncateChars = 500

// TEIConfig holds configuration for the TEI reranker.
type TEIConfig struct {
	// BaseURL is the base URL of the TEI rerank API.
	BaseURL string

	// Model is the cross-encoder model served by TEI, used for logging.
	Model string

	// TimeoutSeconds bounds each rerank request. Default 10.
	TimeoutSeconds int

	// TruncateChars caps candidate text length before submission.
	// Default DefaultTruncateChars.
	TruncateChars int
}

// TEIReranker scores candidates with a TEI cross-encoder endpoint.
//
// The cross-encoder sees the raw query together with each candidate text and
// returns a relevance score per candidate in [0, 1], a higher-fidelity
// signal than embedding similarity alone.
type TEIReranker struct {
	config TEIConfig
	client *http.Client
}

// NewTEIReranker creates a TEI-backed reranker.
func NewTEIReranker(config TEIConfig) (*TEIReranker, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if config.TruncateChars == 0 {
		config.TruncateChars = DefaultTruncateChars
	}
	if config.TruncateChars < 0 {
		return nil, fmt.Errorf("%w: truncate chars must not be negative", ErrInvalidConfig)
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &TEIReranker{
		config: config,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// rerankRequest is the request body for the TEI rerank endpoint.
type rerankRequest struct {
	Query    string   `json:"query"`
	Texts    []string `json:"texts"`
	Truncate bool     `json:"truncate"`
}

// rerankResponseItem is one scored entry of the TEI rerank response.
type rerankResponseItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank submits the query and truncated candidate texts to the scoring
// service and returns candidates ordered by the returned relevance.
func (r *TEIReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]RankedResult, error) {
	if len(candidates) == 0 {
		return []RankedResult{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = truncate(c.Content, r.config.TruncateChars)
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, string(respBody))
	}

	var items []rerankResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrProviderResponse, err)
	}

	results := make([]RankedResult, 0, len(items))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(candidates) {
			return nil, fmt.Errorf("%w: candidate index %d out of range", ErrProviderResponse, item.Index)
		}
		results = append(results, RankedResult{
			Candidate:    candidates[item.Index],
			Relevance:    clampUnit(item.Score),
			OriginalRank: item.Index,
		})
	}

	// Output must be descending with input candidate order on ties,
	// regardless of how TEI orders its response.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].OriginalRank < results[j].OriginalRank
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// Close is a no-op for TEI since it uses HTTP.
func (r *TEIReranker) Close() error {
	return nil
}

// truncate caps s at max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// clampUnit clamps v into [0, 1].
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Ensure TEIReranker implements Reranker interface.
var _ Reranker = (*TEIReranker)(nil)
