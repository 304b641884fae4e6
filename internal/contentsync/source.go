package contentsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSourceFetch wraps any network, auth, or decode failure from the
// authoring system. A fetch failure aborts the run before any write.
var ErrSourceFetch = errors.New("content source fetch failed")

// SourceItem is one question record as delivered by the external authoring
// system for a single question set.
type SourceItem struct {
	Position        int             `json:"position"`
	LOID            string          `json:"loid"`
	TypeTag         string          `json:"type"`
	QuestionHTML    string          `json:"question_html"`
	Payload         json.RawMessage `json:"payload"`
	ExplanationHTML string          `json:"explanation_html"`
}

// ContentSource fetches the current content of a question set from the
// authoring system.
type ContentSource interface {
	FetchQuestionSet(ctx context.Context, externalID string) ([]SourceItem, error)
}

type HTTPSourceConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPSource talks to the authoring system's REST API.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  client,
	}
}

type sourceItemsResponse struct {
	Items []SourceItem `json:"items"`
}

func (s *HTTPSource) FetchQuestionSet(ctx context.Context, externalID string) ([]SourceItem, error) {
	externalID = strings.TrimSpace(externalID)
	if s.baseURL == "" {
		return nil, fmt.Errorf("%w: source base url not configured", ErrSourceFetch)
	}
	if externalID == "" {
		return nil, fmt.Errorf("%w: external id is required", ErrSourceFetch)
	}

	reqURL := fmt.Sprintf("%s/question-sets/%s/items", s.baseURL, url.PathEscape(externalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: source status %d", ErrSourceFetch, resp.StatusCode)
	}

	var out sourceItemsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceFetch, err)
	}
	return out.Items, nil
}
