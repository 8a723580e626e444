package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sevatrust/seva-donations/internal/api/httpx"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/middleware"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/payment"
	"github.com/sevatrust/seva-donations/internal/services"
)

type DonationHandler struct {
	Svc *services.DonationService
}

func NewDonationHandler(s *services.DonationService) *DonationHandler {
	return &DonationHandler{Svc: s}
}

type createDonationResp struct {
	Donation models.Donation `json:"donation"`
	Session  payment.Session `json:"session"`
}

// Create starts a donation. An authenticated caller is recorded as the donor
// account regardless of the body.
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InitiateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	in.UserID = nil
	if u, ok := middleware.FromCtx(r.Context()); ok {
		id := u.UserID
		in.UserID = &id
	}

	d, sess, err := h.Svc.Initiate(r.Context(), in)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createDonationResp{Donation: d, Session: sess})
}

func (h *DonationHandler) Status(w http.ResponseWriter, r *http.Request) {
	pub, err := h.Svc.Status(r.Context(), chi.URLParam(r, "txnid"))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pub)
}

func optID(r *http.Request, key string) (*int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil, apperr.Validation("invalid query", apperr.FieldError{Field: key, Msg: "must be a positive integer"})
	}
	return &n, nil
}

func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r, 50, 500)
	f := models.DonationFilter{
		Status: models.DonationStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	var err error
	if f.CategoryID, err = optID(r, "category_id"); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if f.EventID, err = optID(r, "event_id"); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}

	out, err := h.Svc.List(r.Context(), f)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *DonationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	d, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *DonationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
