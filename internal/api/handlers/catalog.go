package handlers

import (
	"net/http"

	"github.com/sevatrust/seva-donations/internal/api/httpx"
	"github.com/sevatrust/seva-donations/internal/services"
)

// CatalogHandler serves categories, events and donation cards. Public routes see
// active rows only; admin routes see everything.
type CatalogHandler struct {
	Svc *services.CatalogService
}

func NewCatalogHandler(s *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Svc: s}
}

// withID parses {id} and runs fn with it.
func withID(w http.ResponseWriter, r *http.Request, fn func(id int64) (any, error), status int) {
	id, err := httpx.IDParam(r)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	out, err := fn(id)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	httpx.WriteJSON(w, status, out)
}

func decodeThen[T any](w http.ResponseWriter, r *http.Request, fn func(in T) (any, error), status int) {
	var in T
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	out, err := fn(in)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, out)
}

func list[T any](w http.ResponseWriter, r *http.Request, out []T, err error) {
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// ----------------- categories -----------------

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListCategories(r.Context(), true)
	list(w, r, out, err)
}

func (h *CatalogHandler) ListAllCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListCategories(r.Context(), false)
	list(w, r, out, err)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.GetCategory(r.Context(), id, false) }, http.StatusOK)
}

func (h *CatalogHandler) CategoryCards(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.CategoryCards(r.Context(), id) }, http.StatusOK)
}

func (h *CatalogHandler) CategoryBankDetails(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.CategoryBankDetails(r.Context(), id) }, http.StatusOK)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	decodeThen(w, r, func(in services.CategoryInput) (any, error) {
		return h.Svc.CreateCategory(r.Context(), in)
	}, http.StatusCreated)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) {
		var in services.CategoryInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return nil, err
		}
		return h.Svc.UpdateCategory(r.Context(), id, in)
	}, http.StatusOK)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.DeleteCategory(r.Context(), id) }, http.StatusNoContent)
}

// ----------------- events -----------------

func (h *CatalogHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListEvents(r.Context(), true)
	list(w, r, out, err)
}

func (h *CatalogHandler) ListAllEvents(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListEvents(r.Context(), false)
	list(w, r, out, err)
}

func (h *CatalogHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.GetEvent(r.Context(), id, false) }, http.StatusOK)
}

func (h *CatalogHandler) EventCards(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.EventCards(r.Context(), id) }, http.StatusOK)
}

func (h *CatalogHandler) EventBankDetails(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.EventBankDetails(r.Context(), id) }, http.StatusOK)
}

func (h *CatalogHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	decodeThen(w, r, func(in services.EventInput) (any, error) {
		return h.Svc.CreateEvent(r.Context(), in)
	}, http.StatusCreated)
}

func (h *CatalogHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) {
		var in services.EventInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return nil, err
		}
		return h.Svc.UpdateEvent(r.Context(), id, in)
	}, http.StatusOK)
}

func (h *CatalogHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.DeleteEvent(r.Context(), id) }, http.StatusNoContent)
}

// ----------------- cards -----------------

func (h *CatalogHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListCards(r.Context(), true)
	list(w, r, out, err)
}

func (h *CatalogHandler) ListAllCards(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListCards(r.Context(), false)
	list(w, r, out, err)
}

func (h *CatalogHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.GetCard(r.Context(), id, false) }, http.StatusOK)
}

func (h *CatalogHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	decodeThen(w, r, func(in services.CardInput) (any, error) {
		return h.Svc.CreateCard(r.Context(), in)
	}, http.StatusCreated)
}

func (h *CatalogHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) {
		var in services.CardInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return nil, err
		}
		return h.Svc.UpdateCard(r.Context(), id, in)
	}, http.StatusOK)
}

func (h *CatalogHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.DeleteCard(r.Context(), id) }, http.StatusNoContent)
}
