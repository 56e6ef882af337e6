package api

import (
	"net/http"
	"strconv"

	"github.com/ignite/aspect-export/internal/pkg/httputil"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/batch"
	"github.com/ignite/aspect-export/internal/service/dispatch"
	"github.com/ignite/aspect-export/internal/service/schema"
)

// Handlers carries the service dependencies of the admin API.
type Handlers struct {
	schemas *schema.Service
	batches *batch.Service
	logs    *dispatch.Service
	log     *logger.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(schemas *schema.Service, batches *batch.Service,
	logs *dispatch.Service, log *logger.Logger) *Handlers {
	return &Handlers{schemas: schemas, batches: batches, logs: logs, log: log}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// listResponse is the standard paginated list envelope.
type listResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
