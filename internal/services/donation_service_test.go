package services

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/payment"
	"github.com/sevatrust/seva-donations/internal/worker"
)

func TestInitiate_CreatesPendingDonationAndSession(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()

	d, sess, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.DonationPending, d.Status)
	assert.True(t, strings.HasPrefix(d.TxnID, "TXN_"))
	assert.Equal(t, payment.ModeGateway, sess.Mode)
	assert.Equal(t, d.TxnID, sess.Fields["txnid"])
	assert.Equal(t, "500", sess.Fields["amount"])
	assert.Equal(t, "1", sess.Fields["udf1"])
	assert.Len(t, sess.Fields["hash"], 128)
	assert.Equal(t, []string{"created"}, e.auditActions("donation"))
}

func TestInitiate_RejectsInvalidInput(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()

	cases := map[string]func(*InitiateInput){
		"zero amount":    func(in *InitiateInput) { in.Amount = 0 },
		"negative":       func(in *InitiateInput) { in.Amount = -5 },
		"bad email":      func(in *InitiateInput) { in.Email = "asha" },
		"short phone":    func(in *InitiateInput) { in.Phone = "123" },
		"missing name":   func(in *InitiateInput) { in.DonorName = "   " },
		"bad pan":        func(in *InitiateInput) { in.PAN = "AB-12" },
		"unknown categ.": func(in *InitiateInput) { id := int64(99); in.CategoryID = &id },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, _, err := e.donation.Initiate(ctx, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	all, err := e.store.Donations().List(ctx, models.DonationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInitiate_InactiveCategoryRejected(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	c := seedCategory(t, e, "Gau Seva", false)

	in := validInput()
	in.CategoryID = &c.ID
	_, _, err := e.donation.Initiate(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestInitiate_CategoryNameBecomesProductInfo(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	c := seedCategory(t, e, "Annadaan", true)

	in := validInput()
	in.CategoryID = &c.ID
	d, sess, err := e.donation.Initiate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, c.ID, *d.CategoryID)
	assert.Equal(t, "Annadaan", sess.Fields["productinfo"])
}

func TestInitiate_MaxAmount(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	in := validInput()
	in.Amount = math.MaxInt64

	d, sess, err := e.donation.Initiate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775807", sess.Fields["amount"])

	res, err := e.donation.HandleCallback(context.Background(), signedCallback(d, "success"), false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestHandleCallback_SuccessAppliesOnce(t *testing.T) {
	wp := worker.NewPool(2)
	e := newTestEnv(t, payment.ModeGateway, wp)
	ctx := context.Background()

	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	cb := signedCallback(d, "success")

	first, err := e.donation.HandleCallback(ctx, cb, false)
	require.NoError(t, err)
	second, err := e.donation.HandleCallback(ctx, cb, false)
	require.NoError(t, err)
	wp.Stop()

	assert.True(t, first.Applied)
	assert.False(t, second.Applied)
	assert.Equal(t, models.DonationSuccess, second.Donation.Status)

	stored, err := e.store.Donations().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationSuccess, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, "403993715521", *stored.PaymentID)
	assert.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.ReceiptSent)
	assert.Equal(t, []string{"created", "status_change", "receipt_sent"}, e.auditActions("donation"))
}

func TestHandleCallback_TamperedHashLeavesDonationPending(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()

	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	cb := signedCallback(d, "success")
	cb.Amount = "5"
	_, err = e.donation.HandleCallback(ctx, cb, false)
	assert.ErrorIs(t, err, apperr.ErrIntegrity)

	stored, err := e.store.Donations().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationPending, stored.Status)
}

func TestHandleCallback_SignedButMismatchedDonation(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()

	a, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	b, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	// a validly signed callback for b pointing at a's id
	forged := b
	forged.ID = a.ID
	_, err = e.donation.HandleCallback(ctx, signedCallback(forged, "success"), false)
	assert.ErrorIs(t, err, apperr.ErrIntegrity)

	other := a
	other.Amount = 900
	_, err = e.donation.HandleCallback(ctx, signedCallback(other, "success"), false)
	assert.ErrorIs(t, err, apperr.ErrIntegrity)

	unknown := a
	unknown.ID = 999
	_, err = e.donation.HandleCallback(ctx, signedCallback(unknown, "success"), false)
	assert.ErrorIs(t, err, apperr.ErrIntegrity)

	stored, err := e.store.Donations().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationPending, stored.Status)
}

func TestHandleCallback_DecimalAmountAccepted(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()
	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	cb := signedCallback(d, "success")
	cb.Amount = "500.00"
	cb.Hash = payment.ComputeResponseHash(testKey, testSalt, cb.ResponseFields)

	res, err := e.donation.HandleCallback(ctx, cb, false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestHandleCallback_FailureStoresReason(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()
	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	cb := signedCallback(d, "failure")
	cb.ErrorMessage = "Bank was unable to authenticate"
	res, err := e.donation.HandleCallback(ctx, cb, true)
	require.NoError(t, err)

	assert.True(t, res.Applied)
	assert.Equal(t, models.DonationFailed, res.Donation.Status)
	require.NotNil(t, res.Donation.ErrorMessage)
	assert.Equal(t, "Bank was unable to authenticate", *res.Donation.ErrorMessage)
	assert.False(t, res.Donation.ReceiptSent)

	// a late success for the same donation changes nothing
	late, err := e.donation.HandleCallback(ctx, signedCallback(d, "success"), false)
	require.NoError(t, err)
	assert.False(t, late.Applied)
	assert.Equal(t, models.DonationFailed, late.Donation.Status)
}

func TestHandleCallback_UnexpectedStatusOnSuccessURLFails(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()
	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	res, err := e.donation.HandleCallback(ctx, signedCallback(d, "pending"), false)
	require.NoError(t, err)
	assert.Equal(t, models.DonationFailed, res.Donation.Status)

	d2, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	res, err = e.donation.HandleCallback(ctx, signedCallback(d2, "SUCCESS"), false)
	require.NoError(t, err)
	assert.Equal(t, models.DonationSuccess, res.Donation.Status)
}

func TestHandleCallback_ConcurrentDuplicatesApplyOnce(t *testing.T) {
	wp := worker.NewPool(4)
	e := newTestEnv(t, payment.ModeGateway, wp)
	ctx := context.Background()
	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	cb := signedCallback(d, "success")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.donation.HandleCallback(ctx, cb, false)
			if err == nil && res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	wp.Stop()

	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"created", "status_change", "receipt_sent"}, e.auditActions("donation"))
}

func TestConfirmSimulated(t *testing.T) {
	e := newTestEnv(t, payment.ModeSimulated, nil)
	ctx := context.Background()

	d, sess, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, payment.ModeSimulated, sess.Mode)
	assert.Equal(t, int64(1000), sess.ConfirmDelayMS)

	_, err = e.donation.ConfirmSimulated(ctx, d.TxnID, "cheque")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	res, err := e.donation.ConfirmSimulated(ctx, d.TxnID, "UPI")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.DonationSuccess, res.Donation.Status)
	require.NotNil(t, res.Donation.PaymentMethod)
	assert.Equal(t, "upi", *res.Donation.PaymentMethod)
	require.NotNil(t, res.Donation.PaymentID)
	assert.True(t, strings.HasPrefix(*res.Donation.PaymentID, "SIM_"))

	stored, err := e.store.Donations().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, stored.ReceiptSent)

	again, err := e.donation.ConfirmSimulated(ctx, d.TxnID, "card")
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, "upi", *again.Donation.PaymentMethod)

	_, err = e.donation.ConfirmSimulated(ctx, "TXN_nope", "upi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConfirmSimulated_DisabledInGatewayMode(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	d, _, err := e.donation.Initiate(context.Background(), validInput())
	require.NoError(t, err)

	_, err = e.donation.ConfirmSimulated(context.Background(), d.TxnID, "upi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHandleCallback_RefusedInSimulatedMode(t *testing.T) {
	e := newTestEnv(t, payment.ModeSimulated, nil)
	ctx := context.Background()
	d, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)

	_, err = e.donation.HandleCallback(ctx, signedCallback(d, "failure"), true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := e.store.Donations().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationPending, stored.Status)
}

func TestHandleCallback_RefusedWithBlankCredentials(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()
	co := e.checkout
	co.MerchantKey, co.Secret = "", ""
	svc := NewDonationService(e.store.Donations(), e.store.Categories(), e.store.Events(), e.audit, nil, co)

	d, _, err := svc.Initiate(ctx, validInput())
	require.NoError(t, err)
	cb := signedCallback(d, "failure")
	cb.ErrorMessage = "forged"
	cb.Hash = payment.ComputeResponseHash("", "", cb.ResponseFields)

	_, err = svc.HandleCallback(ctx, cb, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := e.store.Donations().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationPending, stored.Status)
	assert.Nil(t, stored.ErrorMessage)
}

func TestStatus_HidesContactDetails(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	in := validInput()
	in.PAN = "abcde1234f"
	d, _, err := e.donation.Initiate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, d.PAN)
	assert.Equal(t, "ABCDE1234F", *d.PAN)

	pub, err := e.donation.Status(context.Background(), d.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.PublicDonation{
		TxnID: d.TxnID, Amount: 500, DonorName: "Asha Rao", Status: models.DonationPending, CreatedAt: d.CreatedAt,
	}, pub)
}

func TestList_FiltersAndDelete(t *testing.T) {
	e := newTestEnv(t, payment.ModeGateway, nil)
	ctx := context.Background()
	a, _, err := e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	_, _, err = e.donation.Initiate(ctx, validInput())
	require.NoError(t, err)
	_, err = e.donation.HandleCallback(ctx, signedCallback(a, "success"), false)
	require.NoError(t, err)

	ok, err := e.donation.List(ctx, models.DonationFilter{Status: models.DonationSuccess})
	require.NoError(t, err)
	require.Len(t, ok, 1)
	assert.Equal(t, a.ID, ok[0].ID)

	_, err = e.donation.List(ctx, models.DonationFilter{Status: "refunded"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, e.donation.Delete(ctx, a.ID))
	_, err = e.donation.Get(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
