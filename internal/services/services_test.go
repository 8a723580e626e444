package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/sevatrust/seva-donations/internal/auth"
	"github.com/sevatrust/seva-donations/internal/cache"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/payment"
	"github.com/sevatrust/seva-donations/internal/repository/memory"
	"github.com/sevatrust/seva-donations/internal/worker"
)

const (
	testKey  = "gtKFFx"
	testSalt = "eCwWELxi"
)

type testEnv struct {
	store    *memory.Store
	mr       *miniredis.Miniredis
	views    *cache.Views
	audit    *Auditor
	checkout payment.Checkout
	donation *DonationService
	catalog  *CatalogService
	content  *ContentService
	contact  *ContactService
	users    *UserService
}

func testCheckout(mode string) payment.Checkout {
	return payment.Checkout{
		MerchantKey:  testKey,
		Secret:       testSalt,
		Mode:         mode,
		ActionURL:    "https://test.payu.in/_payment",
		SuccessURL:   "http://api.test/payments/success",
		FailureURL:   "http://api.test/payments/failure",
		ConfirmURL:   "http://api.test/payments/simulate/confirm",
		ConfirmDelay: time.Second,
	}
}

// newTestEnv wires every service over a fresh memory store and miniredis. A nil
// pool runs receipts inline.
func newTestEnv(t *testing.T, mode string, wp *worker.Pool) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.New()
	views := cache.New(client, time.Minute)
	audit := NewAuditor(store.AuditLogs())
	co := testCheckout(mode)
	tm := auth.NewTokenManager("s3cret", "seva", time.Minute, time.Hour)

	return &testEnv{
		store:    store,
		mr:       mr,
		views:    views,
		audit:    audit,
		checkout: co,
		donation: NewDonationService(store.Donations(), store.Categories(), store.Events(), audit,
			NewReceiptDispatcher(store.Donations(), wp, audit), co),
		catalog: NewCatalogService(store.Categories(), store.Events(), store.Cards(), views, audit),
		content: NewContentService(store.Content(), views, audit),
		contact: NewContactService(store.ContactMessages(), audit),
		users:   NewUserService(store.Users(), tm, audit),
	}
}

func validInput() InitiateInput {
	return InitiateInput{
		DonorName: "Asha Rao",
		Email:     "asha@example.com",
		Phone:     "9876543210",
		Amount:    500,
	}
}

// signedCallback builds the post-back the gateway would send for d.
func signedCallback(d models.Donation, status string) payment.Callback {
	cb := payment.Callback{
		ResponseFields: payment.ResponseFields{
			Status:      status,
			TxnID:       d.TxnID,
			Amount:      strconv.FormatInt(d.Amount, 10),
			ProductInfo: "Donation",
			FirstName:   d.DonorName,
			Email:       d.Email,
		},
		PaymentID: "403993715521",
	}
	cb.UDF[0] = strconv.FormatInt(d.ID, 10)
	cb.Hash = payment.ComputeResponseHash(testKey, testSalt, cb.ResponseFields)
	return cb
}

func (e *testEnv) auditActions(entity string) []string {
	var out []string
	for _, l := range e.store.AuditEntries() {
		if l.EntityType == entity {
			out = append(out, l.Action)
		}
	}
	return out
}

func seedCategory(t *testing.T, e *testEnv, name string, active bool) models.DonationCategory {
	t.Helper()
	c, err := e.catalog.CreateCategory(context.Background(), CategoryInput{Name: name, IsActive: &active})
	require.NoError(t, err)
	return c
}
