package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/httputil"
	"github.com/ignite/aspect-export/internal/service/schema"
)

// maxImportBytes bounds uploaded layout sheets and field documents.
const maxImportBytes = 1 << 20

func (h *Handlers) ListSchemas(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, total, err := h.schemas.List(r.Context(), schema.ListFilter{
		PublishedOnly: r.URL.Query().Get("published") == "true",
		Search:        r.URL.Query().Get("search"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, listResponse{Items: items, Total: total})
}

func (h *Handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	sc, err := h.schemas.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, schema.ErrNotFound) {
		httputil.NotFound(w, "schema not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, sc)
}

type schemaRequest struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	FileExtension string             `json:"file_extension"`
	Fields        []domain.FieldSpec `json:"fields"`
	IsPublished   bool               `json:"is_published"`
}

func (h *Handlers) CreateSchema(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	sc, err := h.schemas.Create(r.Context(), schema.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		FileExtension: req.FileExtension,
		Fields:        req.Fields,
		IsPublished:   req.IsPublished,
	})
	if errors.Is(err, schema.ErrDuplicateName) {
		httputil.Error(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, sc)
}

func (h *Handlers) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string            `json:"name"`
		Description   *string            `json:"description"`
		FileExtension *string            `json:"file_extension"`
		Fields        []domain.FieldSpec `json:"fields"`
		IsPublished   *bool              `json:"is_published"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	sc, err := h.schemas.Update(r.Context(), chi.URLParam(r, "id"), schema.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		FileExtension: req.FileExtension,
		Fields:        req.Fields,
		IsPublished:   req.IsPublished,
	})
	if errors.Is(err, schema.ErrNotFound) {
		httputil.NotFound(w, "schema not found")
		return
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, sc)
}

func (h *Handlers) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	err := h.schemas.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, schema.ErrNotFound):
		httputil.NotFound(w, "schema not found")
	case errors.Is(err, schema.ErrInUse):
		httputil.Error(w, http.StatusConflict, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.NoContent(w)
	}
}

func (h *Handlers) PublishSchema(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

func (h *Handlers) UnpublishSchema(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *Handlers) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	err := h.schemas.SetPublished(r.Context(), chi.URLParam(r, "id"), published)
	if errors.Is(err, schema.ErrNotFound) {
		httputil.NotFound(w, "schema not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"is_published": published})
}

func (h *Handlers) ExportSchemaFields(w http.ResponseWriter, r *http.Request) {
	data, err := h.schemas.ExportFields(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, schema.ErrNotFound) {
		httputil.NotFound(w, "schema not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(data)
}

func (h *Handlers) ImportSchemaFields(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		httputil.BadRequest(w, "read request body: "+err.Error())
		return
	}

	sc, err := h.schemas.ImportFields(r.Context(), chi.URLParam(r, "id"), data)
	if errors.Is(err, schema.ErrNotFound) {
		httputil.NotFound(w, "schema not found")
		return
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, sc)
}

func (h *Handlers) ImportSchemaLayout(w http.ResponseWriter, r *http.Request) {
	report, err := h.schemas.ImportLayoutCSV(r.Context(), chi.URLParam(r, "id"),
		io.LimitReader(r.Body, maxImportBytes))
	if errors.Is(err, schema.ErrNotFound) {
		httputil.NotFound(w, "schema not found")
		return
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, report)
}
