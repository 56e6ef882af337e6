package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/aspect-export/internal/pkg/httputil"
	"github.com/ignite/aspect-export/internal/service/batch"
)

// defaultProcessLimit bounds a manually triggered processing run.
const defaultProcessLimit = 10

func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, total, err := h.batches.List(r.Context(), batch.ListFilter{
		Status:     r.URL.Query().Get("status"),
		SchemaID:   r.URL.Query().Get("schema_id"),
		CampaignID: r.URL.Query().Get("campaign_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, listResponse{Items: items, Total: total})
}

func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.batches.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, batch.ErrNotFound) {
		httputil.NotFound(w, "batch not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, b)
}

func (h *Handlers) PendingBatchCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.batches.PendingCount(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"pending": n})
}

// ProcessBatchesNow triggers a processing run outside the worker schedule.
func (h *Handlers) ProcessBatchesNow(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultProcessLimit
	}

	res, err := h.batches.ProcessPending(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, res)
}

func (h *Handlers) ReprocessBatch(w http.ResponseWriter, r *http.Request) {
	err := h.batches.Reprocess(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, batch.ErrNotFound):
		httputil.NotFound(w, "batch not found")
	case errors.Is(err, batch.ErrNotReprocessable):
		httputil.Error(w, http.StatusConflict, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]string{"status": "queued"})
	}
}

func (h *Handlers) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	err := h.batches.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, batch.ErrNotFound) {
		httputil.NotFound(w, "batch not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
