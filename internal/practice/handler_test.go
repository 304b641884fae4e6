package practice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type mockService struct {
	startFn   func(ctx context.Context, setID int64) (*Attempt, error)
	saveFn    func(ctx context.Context, input SaveAnswerInput) error
	submitFn  func(ctx context.Context, publicID string) (*AttemptSummary, error)
	resultFn  func(ctx context.Context, publicID string) (*AttemptResult, error)
	summaryFn func(ctx context.Context, publicID string) (*AttemptSummary, error)
}

func (m *mockService) StartAttempt(ctx context.Context, setID int64) (*Attempt, error) {
	if m.startFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.startFn(ctx, setID)
}

func (m *mockService) SaveAnswer(ctx context.Context, input SaveAnswerInput) error {
	if m.saveFn == nil {
		return fmt.Errorf("unexpected call")
	}
	return m.saveFn(ctx, input)
}

func (m *mockService) Submit(ctx context.Context, publicID string) (*AttemptSummary, error) {
	if m.submitFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.submitFn(ctx, publicID)
}

func (m *mockService) Result(ctx context.Context, publicID string) (*AttemptResult, error) {
	if m.resultFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.resultFn(ctx, publicID)
}

func (m *mockService) Summary(ctx context.Context, publicID string) (*AttemptSummary, error) {
	if m.summaryFn == nil {
		return nil, fmt.Errorf("unexpected call")
	}
	return m.summaryFn(ctx, publicID)
}

func newRouter(svc practiceService) http.Handler {
	h := &Handler{svc: svc}
	r := chi.NewRouter()
	r.Post("/attempts", h.Start)
	r.Put("/attempts/{id}/answers", h.SaveAnswer)
	r.Post("/attempts/{id}/submit", h.Submit)
	r.Get("/attempts/{id}", h.Summary)
	r.Get("/attempts/{id}/result", h.Result)
	return r
}

func TestStartAttempt(t *testing.T) {
	svc := &mockService{
		startFn: func(ctx context.Context, setID int64) (*Attempt, error) {
			if setID != 4 {
				t.Fatalf("expected set 4, got %d", setID)
			}
			return &Attempt{PublicID: "abc", SetID: 4, Status: "in_progress", StartedAt: time.Now()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/attempts", strings.NewReader(`{"set_id":4}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		OK   bool    `json:"ok"`
		Data Attempt `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.OK || body.Data.PublicID != "abc" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStartAttemptEmptySet(t *testing.T) {
	svc := &mockService{
		startFn: func(ctx context.Context, setID int64) (*Attempt, error) {
			return nil, ErrSetEmpty
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/attempts", strings.NewReader(`{"set_id":4}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestSaveAnswer(t *testing.T) {
	svc := &mockService{
		saveFn: func(ctx context.Context, input SaveAnswerInput) error {
			if input.AttemptPublicID != "att-1" || input.QuestionID != 9 {
				t.Fatalf("unexpected input: %+v", input)
			}
			if string(input.Answer) != `{"selected":"a"}` {
				t.Fatalf("unexpected answer: %s", input.Answer)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/attempts/att-1/answers",
		strings.NewReader(`{"question_id":9,"answer":{"selected":"a"}}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSaveAnswerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "attempt missing", err: ErrAttemptNotFound, wantStatus: http.StatusNotFound},
		{name: "already submitted", err: ErrAttemptNotEditable, wantStatus: http.StatusConflict},
		{name: "foreign question", err: ErrQuestionNotInSet, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{
				saveFn: func(ctx context.Context, input SaveAnswerInput) error { return tc.err },
			}
			req := httptest.NewRequest(http.MethodPut, "/attempts/att-1/answers",
				strings.NewReader(`{"question_id":9,"answer":{}}`))
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	svc := &mockService{
		submitFn: func(ctx context.Context, publicID string) (*AttemptSummary, error) {
			return &AttemptSummary{PublicID: publicID, Status: "submitted", Score: 75, TotalQuestions: 4, TotalCorrect: 3, TotalWrong: 1}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/attempts/att-1/submit", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data AttemptSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Score != 75 || body.Data.TotalCorrect != 3 {
		t.Fatalf("unexpected summary: %+v", body.Data)
	}
}

func TestResultBeforeSubmit(t *testing.T) {
	svc := &mockService{
		resultFn: func(ctx context.Context, publicID string) (*AttemptResult, error) {
			return nil, ErrAttemptNotFinal
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/attempts/att-1/result", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
