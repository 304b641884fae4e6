package assistant

import (
	"encoding/json"
	"net/http"
	"strings"

	"examprep/internal/app/apiresp"
	"examprep/internal/content"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type draftRequest struct {
	QuestionHTML string          `json:"question_html"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
}

// Draft suggests an explanation for a question. The caller supplies the
// question content directly so drafts can be requested for unsaved edits
// too.
func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.QuestionHTML) == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "question_html is required")
		return
	}

	tag, ok := content.ParseTypeTag(req.Type)
	if !ok {
		apiresp.WriteError(w, r, http.StatusBadRequest, "unsupported question type")
		return
	}
	payload, err := content.Decode(tag, req.Payload)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := h.svc.DraftExplanation(r.Context(), req.QuestionHTML, payload)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, draft)
}
