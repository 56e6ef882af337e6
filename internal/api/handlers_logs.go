package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/aspect-export/internal/pkg/httputil"
	"github.com/ignite/aspect-export/internal/service/dispatch"
)

func dispatchFilter(r *http.Request) dispatch.ListFilter {
	limit, offset := pagination(r)
	return dispatch.ListFilter{
		Status:     r.URL.Query().Get("status"),
		SchemaID:   r.URL.Query().Get("schema_id"),
		CampaignID: r.URL.Query().Get("campaign_id"),
		ContactID:  r.URL.Query().Get("contact_id"),
		Limit:      limit,
		Offset:     offset,
	}
}

func (h *Handlers) ListDispatchLogs(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.logs.List(r.Context(), dispatchFilter(r))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, listResponse{Items: items, Total: total})
}

func (h *Handlers) GetDispatchLog(w http.ResponseWriter, r *http.Request) {
	l, err := h.logs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, dispatch.ErrNotFound) {
		httputil.NotFound(w, "dispatch log not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, l)
}

func (h *Handlers) DeleteDispatchLog(w http.ResponseWriter, r *http.Request) {
	err := h.logs.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, dispatch.ErrNotFound) {
		httputil.NotFound(w, "dispatch log not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ClearDispatchLogs removes entries older than the given number of days
// (default 30).
func (h *Handlers) ClearDispatchLogs(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("older_than_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.BadRequest(w, "older_than_days must be a non-negative integer")
			return
		}
		days = parsed
	}

	removed, err := h.logs.Clear(r.Context(), days)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int64{"removed": removed})
}

func (h *Handlers) ExportDispatchLogsCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dispatch_logs.csv"`)
	if err := h.logs.ExportCSV(r.Context(), dispatchFilter(r), w); err != nil {
		h.log.Error("api: csv export failed", "error", err.Error())
	}
}
