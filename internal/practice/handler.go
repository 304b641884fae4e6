package practice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"examprep/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type practiceService interface {
	StartAttempt(ctx context.Context, setID int64) (*Attempt, error)
	SaveAnswer(ctx context.Context, input SaveAnswerInput) error
	Submit(ctx context.Context, publicID string) (*AttemptSummary, error)
	Result(ctx context.Context, publicID string) (*AttemptResult, error)
	Summary(ctx context.Context, publicID string) (*AttemptSummary, error)
}

type Handler struct {
	svc practiceService
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type startAttemptRequest struct {
	SetID int64 `json:"set_id"`
}

type saveAnswerRequest struct {
	QuestionID int64           `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SetID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "set_id is required")
		return
	}

	attempt, err := h.svc.StartAttempt(r.Context(), req.SetID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, attempt)
}

func (h *Handler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "id")

	var req saveAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "question_id is required")
		return
	}

	err := h.svc.SaveAnswer(r.Context(), SaveAnswerInput{
		AttemptPublicID: publicID,
		QuestionID:      req.QuestionID,
		Answer:          req.Answer,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"saved": true})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, result)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSetNotFound), errors.Is(err, ErrAttemptNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSetEmpty), errors.Is(err, ErrQuestionNotInSet):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrAttemptNotEditable), errors.Is(err, ErrAttemptNotFinal):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
