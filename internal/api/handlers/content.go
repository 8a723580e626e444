package handlers

import (
	"net/http"

	"github.com/sevatrust/seva-donations/internal/api/httpx"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/services"
)

// ContentHandler serves one static section; the router mounts one per kind.
type ContentHandler struct {
	Svc  *services.ContentService
	Kind models.ContentKind
}

func NewContentHandler(s *services.ContentService, kind models.ContentKind) *ContentHandler {
	return &ContentHandler{Svc: s, Kind: kind}
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context(), h.Kind, true)
	list(w, r, out, err)
}

func (h *ContentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context(), h.Kind, false)
	list(w, r, out, err)
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.Get(r.Context(), h.Kind, id, false) }, http.StatusOK)
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	decodeThen(w, r, func(in services.ContentInput) (any, error) {
		return h.Svc.Create(r.Context(), h.Kind, in)
	}, http.StatusCreated)
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) {
		var in services.ContentInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return nil, err
		}
		return h.Svc.Update(r.Context(), h.Kind, id, in)
	}, http.StatusOK)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.Delete(r.Context(), h.Kind, id) }, http.StatusNoContent)
}

// ----------------- contact messages -----------------

type ContactHandler struct {
	Svc *services.ContactService
}

func NewContactHandler(s *services.ContactService) *ContactHandler {
	return &ContactHandler{Svc: s}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	decodeThen(w, r, func(in services.ContactInput) (any, error) {
		return h.Svc.Submit(r.Context(), in)
	}, http.StatusCreated)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r, 50, 500)
	out, err := h.Svc.List(r.Context(), limit, offset)
	list(w, r, out, err)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.Get(r.Context(), id) }, http.StatusOK)
}

func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.MarkRead(r.Context(), id) }, http.StatusNoContent)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.Delete(r.Context(), id) }, http.StatusNoContent)
}
