package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"examprep/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type reportService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	SetSummary(ctx context.Context, setID int64) (*SetSummary, error)
	ExportSetExcel(ctx context.Context, setID int64) ([]byte, error)
}

type Handler struct {
	svc reportService
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Dashboard(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, dash)
}

func (h *Handler) SetSummary(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || setID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid set id")
		return
	}

	summary, err := h.svc.SetSummary(r.Context(), setID)
	if err != nil {
		if errors.Is(err, ErrSetNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, "question set not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}

func (h *Handler) ExportSet(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || setID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid set id")
		return
	}

	raw, err := h.svc.ExportSetExcel(r.Context(), setID)
	if err != nil {
		if errors.Is(err, ErrSetNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, "question set not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"set-%d.xlsx\"", setID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
