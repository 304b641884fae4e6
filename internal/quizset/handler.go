package quizset

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"examprep/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type quizsetService interface {
	CreateCourse(ctx context.Context, in CreateCourseInput) (*Course, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]Course, error)
	CreateSet(ctx context.Context, in CreateSetInput) (*QuizSet, error)
	ListSets(ctx context.Context, courseID int64) ([]QuizSet, error)
	AttachSetToCourse(ctx context.Context, courseID, setID int64) error
	DetachSetFromCourse(ctx context.Context, courseID, setID int64) error
	SetQuestions(ctx context.Context, setID int64) ([]SetQuestion, error)
	Remix(ctx context.Context, setID int64, questionIDs []int64) error
	UpdateExplanation(ctx context.Context, questionID int64, explanationHTML string) error
}

type Handler struct {
	svc quizsetService
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type createSetRequest struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

type remixRequest struct {
	QuestionIDs []int64 `json:"question_ids"`
}

type explanationRequest struct {
	ExplanationHTML string `json:"explanation_html"`
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	course, err := h.svc.CreateCourse(r.Context(), CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, "title is required")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, course)
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.svc.ListCourses(r.Context(), r.URL.Query().Get("active") == "1")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, courses)
}

func (h *Handler) CreateSet(w http.ResponseWriter, r *http.Request) {
	var req createSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	set, err := h.svc.CreateSet(r.Context(), CreateSetInput{
		Name:       req.Name,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, set)
}

func (h *Handler) ListSets(w http.ResponseWriter, r *http.Request) {
	var courseID int64
	if v := r.URL.Query().Get("course_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid course_id")
			return
		}
		courseID = id
	}

	sets, err := h.svc.ListSets(r.Context(), courseID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, sets)
}

func (h *Handler) AttachSet(w http.ResponseWriter, r *http.Request) {
	courseID, err1 := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	setID, err2 := strconv.ParseInt(chi.URLParam(r, "setID"), 10, 64)
	if err1 != nil || err2 != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.AttachSetToCourse(r.Context(), courseID, setID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"attached": true})
}

func (h *Handler) DetachSet(w http.ResponseWriter, r *http.Request) {
	courseID, err1 := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	setID, err2 := strconv.ParseInt(chi.URLParam(r, "setID"), 10, 64)
	if err1 != nil || err2 != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.DetachSetFromCourse(r.Context(), courseID, setID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"detached": true})
}

func (h *Handler) SetQuestions(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || setID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid set id")
		return
	}

	questions, err := h.svc.SetQuestions(r.Context(), setID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, questions)
}

func (h *Handler) Remix(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || setID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid set id")
		return
	}

	var req remixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Remix(r.Context(), setID, req.QuestionIDs); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"remixed": true})
}

func (h *Handler) UpdateExplanation(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || questionID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question id")
		return
	}

	var req explanationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.UpdateExplanation(r.Context(), questionID, req.ExplanationHTML); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "not found")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
