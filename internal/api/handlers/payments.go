package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/sevatrust/seva-donations/internal/api/httpx"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/payment"
	"github.com/sevatrust/seva-donations/internal/services"
)

const maxCallbackBody = 64 << 10

// PaymentHandler receives gateway post-backs and sends the payer on to the
// frontend result views.
type PaymentHandler struct {
	Svc         *services.DonationService
	FrontendURL string
}

func NewPaymentHandler(s *services.DonationService, frontendURL string) *PaymentHandler {
	return &PaymentHandler{Svc: s, FrontendURL: frontendURL}
}

func (h *PaymentHandler) thankYouURL(d models.Donation) string {
	q := url.Values{}
	q.Set("txnid", d.TxnID)
	q.Set("amount", strconv.FormatInt(d.Amount, 10))
	q.Set("status", string(models.DonationSuccess))
	q.Set("name", d.DonorName)
	q.Set("email", d.Email)
	return h.FrontendURL + "/donation/thank-you?" + q.Encode()
}

func (h *PaymentHandler) failedURL(txnID, reason string) string {
	q := url.Values{}
	q.Set("txnid", txnID)
	q.Set("reason", reason)
	return h.FrontendURL + "/donation/failed?" + q.Encode()
}

func failureReason(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindIntegrity:
		return "We could not verify this payment. If money was deducted, please contact us."
	case apperr.KindNotFound:
		return "We could not find this donation."
	default:
		return "Something went wrong while confirming your payment."
	}
}

func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) { h.callback(w, r, false) }

func (h *PaymentHandler) Failure(w http.ResponseWriter, r *http.Request) { h.callback(w, r, true) }

func (h *PaymentHandler) callback(w http.ResponseWriter, r *http.Request, failureURL bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackBody)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, h.failedURL("", "Invalid payment response."), http.StatusSeeOther)
		return
	}
	cb := payment.ParseCallback(r.PostForm)

	res, err := h.Svc.HandleCallback(r.Context(), cb, failureURL)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			logger.FromContext(r.Context()).Error("payment callback", "txn_id", cb.TxnID, "err", err)
		}
		http.Redirect(w, r, h.failedURL(cb.TxnID, failureReason(err)), http.StatusSeeOther)
		return
	}
	h.redirectResult(w, r, res.Donation)
}

func (h *PaymentHandler) redirectResult(w http.ResponseWriter, r *http.Request, d models.Donation) {
	if d.Status == models.DonationSuccess {
		http.Redirect(w, r, h.thankYouURL(d), http.StatusSeeOther)
		return
	}
	reason := "Payment was not completed."
	if d.ErrorMessage != nil && *d.ErrorMessage != "" {
		reason = *d.ErrorMessage
	}
	http.Redirect(w, r, h.failedURL(d.TxnID, reason), http.StatusSeeOther)
}

type simulateReq struct {
	TxnID  string `json:"txnid"`
	Method string `json:"method"`
}

type simulateResp struct {
	Donation    models.PublicDonation `json:"donation"`
	Applied     bool                  `json:"applied"`
	RedirectURL string                `json:"redirect_url"`
}

// SimulateConfirm completes a donation in simulated payment mode.
func (h *PaymentHandler) SimulateConfirm(w http.ResponseWriter, r *http.Request) {
	var req simulateReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if req.TxnID == "" {
		httpx.WriteAppError(w, r, apperr.Validation("validation failed", apperr.FieldError{Field: "txnid", Msg: "required"}))
		return
	}
	res, err := h.Svc.ConfirmSimulated(r.Context(), req.TxnID, req.Method)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	redirect := h.thankYouURL(res.Donation)
	if res.Donation.Status != models.DonationSuccess {
		redirect = h.failedURL(res.Donation.TxnID, "Payment was not completed.")
	}
	httpx.WriteJSON(w, http.StatusOK, simulateResp{
		Donation:    res.Donation.Public(),
		Applied:     res.Applied,
		RedirectURL: redirect,
	})
}
