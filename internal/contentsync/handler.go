package contentsync

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"examprep/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc syncService
}

type syncService interface {
	SynchronizeFromSource(ctx context.Context, setID int64) (*SyncReport, error)
	Synchronize(ctx context.Context, setID int64, items []SourceItem) (*SyncReport, error)
	Status(ctx context.Context) (*SyncStatus, error)
	Finalize(ctx context.Context) error
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Trigger starts a synchronization run against the authoring API.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || setID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid set id")
		return
	}

	report, err := h.svc.SynchronizeFromSource(r.Context(), setID)
	if err != nil {
		h.writeSyncError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, report)
}

// TriggerWorkbook runs a synchronization from an uploaded .xlsx export.
func (h *Handler) TriggerWorkbook(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || setID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid set id")
		return
	}

	items, err := ParseWorkbook(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.svc.Synchronize(r.Context(), setID, items)
	if err != nil {
		h.writeSyncError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, report)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, status)
}

// Finalize performs the one-time final refresh lockout.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Finalize(r.Context()); err != nil {
		if errors.Is(err, ErrSyncRunning) {
			apiresp.WriteError(w, r, http.StatusConflict, "a synchronization run is in progress; try again after it completes")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"finalized": true})
}

func (h *Handler) writeSyncError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSyncRunning):
		apiresp.WriteError(w, r, http.StatusConflict, "synchronization already running")
	case errors.Is(err, ErrSyncFinalized):
		apiresp.WriteError(w, r, http.StatusConflict, "synchronization permanently finalized")
	case errors.Is(err, ErrSetNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "question set not found")
	case errors.Is(err, ErrSourceFetch):
		apiresp.WriteError(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrInvariantViolation):
		apiresp.WriteError(w, r, http.StatusInternalServerError, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
