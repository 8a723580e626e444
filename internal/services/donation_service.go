package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevatrust/seva-donations/internal/api/validate"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/metrics"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/payment"
	repo "github.com/sevatrust/seva-donations/internal/repository"
)

// txnAttempts bounds retries when a generated txn id collides.
const txnAttempts = 3

type DonationService struct {
	donations  repo.Donations
	categories repo.Categories
	events     repo.Events
	audit      *Auditor
	receipts   *ReceiptDispatcher
	checkout   payment.Checkout
	now        func() time.Time
}

func NewDonationService(d repo.Donations, c repo.Categories, e repo.Events, a *Auditor, rd *ReceiptDispatcher, co payment.Checkout) *DonationService {
	return &DonationService{donations: d, categories: c, events: e, audit: a, receipts: rd, checkout: co, now: time.Now}
}

type InitiateInput struct {
	DonorName  string `json:"donor_name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Phone      string `json:"phone" validate:"required,min=7,max=15"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	PAN        string `json:"pan" validate:"omitempty,len=10,alphanum"`
	Message    string `json:"message" validate:"max=1000"`
	CategoryID *int64 `json:"category_id" validate:"omitempty,gt=0"`
	EventID    *int64 `json:"event_id" validate:"omitempty,gt=0"`
	UserID     *int64 `json:"user_id" validate:"omitempty,gt=0"`
}

func (in *InitiateInput) normalize() {
	in.DonorName = strings.TrimSpace(in.DonorName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.PAN = strings.ToUpper(strings.TrimSpace(in.PAN))
	in.Message = strings.TrimSpace(in.Message)
}

// Initiate validates the donor input, stores a pending donation and returns the
// payment session the client uses to pay for it.
func (s *DonationService) Initiate(ctx context.Context, in InitiateInput) (models.Donation, payment.Session, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return models.Donation{}, payment.Session{}, err
	}
	purpose, err := s.purpose(ctx, in)
	if err != nil {
		return models.Donation{}, payment.Session{}, err
	}

	d := models.Donation{
		Amount:     in.Amount,
		DonorName:  in.DonorName,
		Email:      in.Email,
		Phone:      in.Phone,
		PAN:        optString(in.PAN),
		Message:    optString(in.Message),
		CategoryID: in.CategoryID,
		EventID:    in.EventID,
		UserID:     in.UserID,
		Status:     models.DonationPending,
	}
	for attempt := 1; ; attempt++ {
		d.TxnID = payment.NewTxnID(s.now())
		created, err := s.donations.Create(ctx, d)
		if err == nil {
			d = created
			break
		}
		if !errors.Is(err, apperr.ErrConflict) || attempt == txnAttempts {
			return models.Donation{}, payment.Session{}, apperr.Internal("create donation", err)
		}
	}

	metrics.DonationsInitiated.Inc()
	s.audit.Record(ctx, "donation", d.ID, "created", map[string]any{"txn_id": d.TxnID, "amount": d.Amount})
	logger.FromContext(ctx).Info("donation initiated", "txn_id", d.TxnID, "amount", d.Amount)

	sess := s.checkout.Start(d.TxnID, d.Amount, purpose,
		payment.Payer{Name: d.DonorName, Email: d.Email, Phone: d.Phone},
		strconv.FormatInt(d.ID, 10))
	return d, sess, nil
}

// purpose checks the referenced category and event and returns the product
// description sent to the gateway.
func (s *DonationService) purpose(ctx context.Context, in InitiateInput) (string, error) {
	purpose := "Donation"
	if in.CategoryID != nil {
		c, err := s.categories.GetByID(ctx, *in.CategoryID)
		if err != nil {
			return "", refError(err, "category_id", "unknown category")
		}
		if !c.IsActive {
			return "", apperr.Validation("validation failed", apperr.FieldError{Field: "category_id", Msg: "category is not active"})
		}
		purpose = c.Name
	}
	if in.EventID != nil {
		e, err := s.events.GetByID(ctx, *in.EventID)
		if err != nil {
			return "", refError(err, "event_id", "unknown event")
		}
		if !e.IsActive {
			return "", apperr.Validation("validation failed", apperr.FieldError{Field: "event_id", Msg: "event is not active"})
		}
		purpose = e.Title
	}
	return purpose, nil
}

func refError(err error, field, msg string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Validation("validation failed", apperr.FieldError{Field: field, Msg: msg})
	}
	return err
}

// CallbackResult is the outcome of a processed gateway or simulated confirmation.
// Applied is false when the donation was already terminal and nothing changed.
type CallbackResult struct {
	Donation models.Donation
	Applied  bool
}

// HandleCallback verifies a gateway post-back and applies the terminal transition.
// A callback posted to the failure URL always fails the donation.
func (s *DonationService) HandleCallback(ctx context.Context, cb payment.Callback, failureURL bool) (CallbackResult, error) {
	log := logger.FromContext(ctx).With("txn_id", cb.TxnID)

	if !s.checkout.AcceptsCallbacks() {
		metrics.CallbacksRejected.WithLabelValues("disabled").Inc()
		log.Warn("payment callback while gateway is not configured")
		return CallbackResult{}, apperr.NotFound("gateway callbacks are disabled")
	}
	if !s.checkout.Verify(cb) {
		metrics.CallbacksRejected.WithLabelValues("hash").Inc()
		log.Warn("payment callback hash mismatch")
		return CallbackResult{}, apperr.Integrity("payment verification failed")
	}

	id, err := strconv.ParseInt(cb.DonationRef(), 10, 64)
	if err != nil {
		metrics.CallbacksRejected.WithLabelValues("unknown").Inc()
		log.Warn("payment callback without donation reference")
		return CallbackResult{}, apperr.Integrity("unknown donation reference")
	}
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.CallbacksRejected.WithLabelValues("unknown").Inc()
			log.Warn("payment callback for unknown donation")
			return CallbackResult{}, apperr.Integrity("unknown donation reference")
		}
		return CallbackResult{}, err
	}
	if d.TxnID != cb.TxnID || !amountMatches(d.Amount, cb.Amount) {
		metrics.CallbacksRejected.WithLabelValues("mismatch").Inc()
		log.Warn("payment callback does not match donation", "donation_id", d.ID)
		return CallbackResult{}, apperr.Integrity("transaction mismatch")
	}

	out := models.DonationOutcome{Status: models.NormalizeStatus(cb.Status), PaymentID: cb.PaymentID}
	if failureURL {
		out.Status = models.DonationFailed
	}
	if out.Status == models.DonationFailed {
		out.ErrorMessage = cb.ErrorMessage
	}
	return s.complete(ctx, d, out)
}

// ConfirmSimulated completes a donation without a gateway. Only available in
// simulated mode.
func (s *DonationService) ConfirmSimulated(ctx context.Context, txnID, method string) (CallbackResult, error) {
	if s.checkout.Mode != payment.ModeSimulated {
		return CallbackResult{}, apperr.NotFound("simulated payments are disabled")
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if !slices.Contains(payment.SimulatedMethods, method) {
		return CallbackResult{}, apperr.Validation("validation failed",
			apperr.FieldError{Field: "method", Msg: "must be one of " + strings.Join(payment.SimulatedMethods, " ")})
	}
	d, err := s.donations.GetByTxnID(ctx, strings.TrimSpace(txnID))
	if err != nil {
		return CallbackResult{}, err
	}
	return s.complete(ctx, d, models.DonationOutcome{
		Status:        models.DonationSuccess,
		PaymentID:     "SIM_" + uuid.NewString(),
		PaymentMethod: method,
	})
}

func (s *DonationService) complete(ctx context.Context, d models.Donation, out models.DonationOutcome) (CallbackResult, error) {
	log := logger.FromContext(ctx).With("txn_id", d.TxnID)

	updated, applied, err := s.donations.Complete(ctx, d.ID, out)
	if err != nil {
		return CallbackResult{}, err
	}
	if !applied {
		log.Info("duplicate payment confirmation ignored", "status", updated.Status)
		return CallbackResult{Donation: updated}, nil
	}

	log.Info("donation completed", "status", updated.Status)
	metrics.DonationsCompleted.WithLabelValues(string(updated.Status)).Inc()
	s.audit.Record(ctx, "donation", updated.ID, "status_change", map[string]any{
		"from": string(models.DonationPending),
		"to":   string(updated.Status),
	})
	if updated.Status == models.DonationSuccess {
		metrics.DonatedAmount.Add(float64(updated.Amount))
		if s.receipts != nil {
			s.receipts.Enqueue(ctx, updated)
		}
	}
	return CallbackResult{Donation: updated, Applied: true}, nil
}

// amountMatches compares a stored amount with the gateway's decimal rendering,
// which may carry a zero fraction ("500.00").
func amountMatches(stored int64, reported string) bool {
	whole, frac, _ := strings.Cut(strings.TrimSpace(reported), ".")
	if strings.Trim(frac, "0") != "" {
		return false
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	return err == nil && n == stored
}

// Status is the anonymous lookup by transaction id.
func (s *DonationService) Status(ctx context.Context, txnID string) (models.PublicDonation, error) {
	d, err := s.donations.GetByTxnID(ctx, txnID)
	if err != nil {
		return models.PublicDonation{}, err
	}
	return d.Public(), nil
}

func (s *DonationService) List(ctx context.Context, f models.DonationFilter) ([]models.Donation, error) {
	if f.Status != "" && f.Status != models.DonationPending && !f.Status.Terminal() {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "status", Msg: "must be pending, success or failed"})
	}
	return s.donations.List(ctx, f)
}

func (s *DonationService) Get(ctx context.Context, id int64) (models.Donation, error) {
	return s.donations.GetByID(ctx, id)
}

func (s *DonationService) Delete(ctx context.Context, id int64) error {
	if err := s.donations.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "donation", id, "deleted", nil)
	return nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
