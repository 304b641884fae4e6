package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"examprep/internal/content"
)

const draftPrompt = "You are a tutor writing answer explanations for an exam practice platform. " +
	"Given a question and its correct answer, write a short explanation (2-4 sentences) of why the answer is correct. " +
	"Plain factual prose, no greetings, no markdown."

type ServiceConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	HTTPClient   *http.Client
}

// Service drafts answer explanations for questions that arrived from the
// source without one. Drafts are suggestions for a tutor to review, never
// written to a version directly.
type Service struct {
	geminiAPIKey string
	geminiModel  string
	client       *http.Client
}

type Draft struct {
	Explanation string `json:"explanation"`
	Source      string `json:"source"`
}

func NewService(cfg ServiceConfig) *Service {
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 18 * time.Second}
	}
	return &Service{
		geminiAPIKey: strings.TrimSpace(cfg.GeminiAPIKey),
		geminiModel:  model,
		client:       client,
	}
}

// DraftExplanation produces an explanation draft for a question. Without an
// API key, or when the model call fails, it falls back to a template built
// from the answer key.
func (s *Service) DraftExplanation(ctx context.Context, questionHTML string, p content.Payload) (Draft, error) {
	q := strings.TrimSpace(questionHTML)
	if q == "" {
		return Draft{}, fmt.Errorf("question text is required")
	}
	if p == nil {
		return Draft{}, fmt.Errorf("payload is required")
	}

	if s.geminiAPIKey == "" {
		return Draft{Explanation: templateDraft(p), Source: "local"}, nil
	}

	prompt := fmt.Sprintf("Question: %s\nAnswer key: %s", stripTags(q), answerSummary(p))
	reply, err := s.generateWithGemini(ctx, prompt)
	if err != nil {
		return Draft{Explanation: templateDraft(p), Source: "local_fallback"}, nil
	}
	return Draft{Explanation: reply, Source: "gemini"}, nil
}

func (s *Service) generateWithGemini(ctx context.Context, query string) (string, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]string{
					{"text": query},
				},
			},
		},
		"systemInstruction": map[string]any{
			"parts": []map[string]string{
				{"text": draftPrompt},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     0.4,
			"maxOutputTokens": 320,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", s.geminiModel, s.geminiAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	var out geminiGenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	reply := strings.TrimSpace(out.firstText())
	if reply == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return reply, nil
}

// answerSummary renders the answer key of a payload as one line of text for
// the prompt.
func answerSummary(p content.Payload) string {
	switch v := p.(type) {
	case *content.SingleChoice:
		for _, c := range v.Choices {
			if c.Key == v.Correct {
				return fmt.Sprintf("%s (%s)", c.Key, c.Text)
			}
		}
		return v.Correct
	case *content.NumericEntry:
		return v.Answer
	case *content.ShortText:
		return v.Answer
	case *content.SelectFromList:
		parts := make([]string, 0, len(v.Blanks))
		for _, b := range v.Blanks {
			parts = append(parts, fmt.Sprintf("%s=%s", b.Label, b.Correct))
		}
		return strings.Join(parts, ", ")
	case *content.DragAndDrop:
		parts := make([]string, 0, len(v.Zones))
		for _, z := range v.Zones {
			parts = append(parts, fmt.Sprintf("%s: %s", z.Label, strings.Join(z.Members, ", ")))
		}
		return strings.Join(parts, "; ")
	case *content.MultiSelect:
		return strings.Join(v.Correct, ", ")
	case *content.EitherOr:
		if v.Correct == "a" {
			return v.OptionA
		}
		return v.OptionB
	default:
		return ""
	}
}

func templateDraft(p content.Payload) string {
	summary := answerSummary(p)
	if summary == "" {
		return "Review the answer key and describe why it is correct."
	}
	return fmt.Sprintf("The correct answer is %s. Review the underlying concept and expand this draft with the reasoning.", summary)
}

// stripTags removes HTML markup so prompts stay plain text. Good enough for
// the simple markup the authoring system emits.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r geminiGenerateResponse) firstText() string {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}
