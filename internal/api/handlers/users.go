package handlers

import (
	"net/http"

	"github.com/sevatrust/seva-donations/internal/api/httpx"
	"github.com/sevatrust/seva-donations/internal/services"
)

type UserHandler struct {
	Svc *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler {
	return &UserHandler{Svc: s}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context())
	list(w, r, out, err)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return h.Svc.Get(r.Context(), id) }, http.StatusOK)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	decodeThen(w, r, func(in services.UserInput) (any, error) {
		return h.Svc.Create(r.Context(), in)
	}, http.StatusCreated)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) {
		var in services.UserInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return nil, err
		}
		return h.Svc.Update(r.Context(), id, in)
	}, http.StatusOK)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id int64) (any, error) { return nil, h.Svc.Delete(r.Context(), id) }, http.StatusNoContent)
}
