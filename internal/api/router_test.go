package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevatrust/seva-donations/internal/auth"
	"github.com/sevatrust/seva-donations/internal/cache"
	"github.com/sevatrust/seva-donations/internal/config"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/payment"
	"github.com/sevatrust/seva-donations/internal/repository/memory"
	"github.com/sevatrust/seva-donations/internal/services"
)

const (
	testKey  = "gtKFFx"
	testSalt = "eCwWELxi"
)

type testServer struct {
	h      http.Handler
	store  *memory.Store
	tokens *auth.TokenManager
	users  *services.UserService
}

func newTestServer(t *testing.T, mode string) *testServer {
	t.Helper()
	return newTestServerWith(t, mode, nil)
}

// newTestServerWith lets a test adjust the config before the router is built.
func newTestServerWith(t *testing.T, mode string, adjust func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Config{
		Env:           "test",
		MerchantKey:   testKey,
		MerchantSalt:  testSalt,
		PaymentMode:   mode,
		GatewayURL:    "https://test.payu.in/_payment",
		PublicBaseURL: "http://api.test",
		FrontendURL:   "http://web.test",
		RateRPS:       0,
	}
	if adjust != nil {
		adjust(&cfg)
	}
	store := memory.New()
	views := cache.New(nil, 0)
	audit := services.NewAuditor(store.AuditLogs())
	tm := auth.NewTokenManager("s3cret", "seva", time.Minute, time.Hour)
	co := payment.Checkout{
		MerchantKey: cfg.MerchantKey,
		Secret:      cfg.MerchantSalt,
		Mode:        cfg.PaymentMode,
		ActionURL:   cfg.GatewayURL,
		SuccessURL:  cfg.PublicBaseURL + "/payments/success",
		FailureURL:  cfg.PublicBaseURL + "/payments/failure",
		ConfirmURL:  cfg.PublicBaseURL + "/payments/simulate/confirm",
	}
	users := services.NewUserService(store.Users(), tm, audit)

	h := NewRouter(RouterDeps{
		Cfg:    cfg,
		Tokens: tm,
		Users:  users,
		Donation: services.NewDonationService(store.Donations(), store.Categories(), store.Events(), audit,
			services.NewReceiptDispatcher(store.Donations(), nil, audit), co),
		Catalog: services.NewCatalogService(store.Categories(), store.Events(), store.Cards(), views, audit),
		Content: services.NewContentService(store.Content(), views, audit),
		Contact: services.NewContactService(store.ContactMessages(), audit),
	})
	return &testServer{h: h, store: store, tokens: tm, users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	email := role + "@seva.org"
	_, err := s.users.Create(context.Background(), services.UserInput{Username: role + "x", Email: email, Password: "longenough", Role: role})
	require.NoError(t, err)
	pair, _, err := s.users.Login(context.Background(), email, "longenough")
	require.NoError(t, err)
	return pair.AccessToken
}

type createResp struct {
	Donation models.Donation `json:"donation"`
	Session  payment.Session `json:"session"`
}

func donationBody() map[string]any {
	return map[string]any{
		"donor_name": "Asha Rao",
		"email":      "asha@example.com",
		"phone":      "9876543210",
		"amount":     500,
	}
}

func (s *testServer) createDonation(t *testing.T) createResp {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/donations", donationBody(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out createResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// gatewayForm is the post-back for a session, signed with the merchant salt.
func gatewayForm(sess payment.Session, status string) url.Values {
	f := payment.ResponseFields{
		Status:      status,
		TxnID:       sess.Fields["txnid"],
		Amount:      sess.Fields["amount"],
		ProductInfo: sess.Fields["productinfo"],
		FirstName:   sess.Fields["firstname"],
		Email:       sess.Fields["email"],
	}
	f.UDF[0] = sess.Fields["udf1"]
	return url.Values{
		"status":      {f.Status},
		"txnid":       {f.TxnID},
		"amount":      {f.Amount},
		"productinfo": {f.ProductInfo},
		"firstname":   {f.FirstName},
		"email":       {f.Email},
		"udf1":        {f.UDF[0]},
		"mihpayid":    {"403993715521"},
		"hash":        {payment.ComputeResponseHash(testKey, testSalt, f)},
	}
}

func TestCreateDonation_Validation(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	body := donationBody()
	body["amount"] = 0

	rec := s.do(t, http.MethodPost, "/donations", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var e struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "validation_error", e.Code)
	require.Len(t, e.Details, 1)
	assert.Equal(t, "amount", e.Details[0].Field)
}

func TestGatewayFlow_SuccessRedirectsToThankYou(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	created := s.createDonation(t)
	assert.Equal(t, "http://api.test/payments/success", created.Session.Fields["surl"])

	rec := s.postForm(t, "/payments/success", gatewayForm(created.Session, "success"))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "web.test", loc.Host)
	assert.Equal(t, "/donation/thank-you", loc.Path)
	assert.Equal(t, created.Donation.TxnID, loc.Query().Get("txnid"))
	assert.Equal(t, "500", loc.Query().Get("amount"))
	assert.Equal(t, "success", loc.Query().Get("status"))
	assert.Equal(t, "Asha Rao", loc.Query().Get("name"))

	// the duplicate post-back still lands on the thank-you page
	again := s.postForm(t, "/payments/success", gatewayForm(created.Session, "success"))
	assert.Equal(t, http.StatusSeeOther, again.Code)
	assert.Contains(t, again.Header().Get("Location"), "/donation/thank-you")

	status := s.do(t, http.MethodGet, "/donations/"+created.Donation.TxnID, nil, "")
	require.Equal(t, http.StatusOK, status.Code)
	var pub map[string]any
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &pub))
	assert.Equal(t, "success", pub["status"])
	assert.NotContains(t, pub, "email")
	assert.NotContains(t, pub, "phone")
}

func TestGatewayFlow_TamperedCallbackRedirectsToFailed(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	created := s.createDonation(t)

	form := gatewayForm(created.Session, "success")
	form.Set("amount", "1")
	rec := s.postForm(t, "/payments/success", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/donation/failed", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("reason"))

	d, err := s.store.Donations().GetByTxnID(context.Background(), created.Donation.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationPending, d.Status)
}

func TestGatewayFlow_FailureCallback(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	created := s.createDonation(t)

	form := gatewayForm(created.Session, "failure")
	form.Set("error_Message", "Insufficient funds")
	rec := s.postForm(t, "/payments/failure", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/donation/failed", loc.Path)
	assert.Equal(t, created.Donation.TxnID, loc.Query().Get("txnid"))
	assert.Equal(t, "Insufficient funds", loc.Query().Get("reason"))
}

func TestSimulatedConfirm(t *testing.T) {
	gw := newTestServer(t, payment.ModeGateway)
	rec := gw.do(t, http.MethodPost, "/payments/simulate/confirm", map[string]string{"txnid": "TXN_1", "method": "upi"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s := newTestServer(t, payment.ModeSimulated)
	created := s.createDonation(t)
	assert.Equal(t, payment.ModeSimulated, created.Session.Mode)

	rec = s.do(t, http.MethodPost, "/payments/simulate/confirm",
		map[string]string{"txnid": created.Donation.TxnID, "method": "card"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Applied     bool   `json:"applied"`
		RedirectURL string `json:"redirect_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Applied)
	assert.True(t, strings.HasPrefix(out.RedirectURL, "http://web.test/donation/thank-you?"))
}

func TestSimulatedMode_GatewayCallbacksNotMounted(t *testing.T) {
	s := newTestServerWith(t, payment.ModeSimulated, func(c *config.Config) {
		c.MerchantKey, c.MerchantSalt = "", ""
	})
	created := s.createDonation(t)

	f := payment.ResponseFields{
		Status: "failure",
		TxnID:  created.Donation.TxnID,
		Amount: "500",
		Email:  "asha@example.com",
	}
	f.UDF[0] = strconv.FormatInt(created.Donation.ID, 10)
	form := url.Values{
		"status":        {f.Status},
		"txnid":         {f.TxnID},
		"amount":        {f.Amount},
		"email":         {f.Email},
		"udf1":          {f.UDF[0]},
		"error_Message": {"forged"},
		"hash":          {payment.ComputeResponseHash("", "", f)},
	}

	for _, path := range []string{"/payments/success", "/payments/failure"} {
		rec := s.postForm(t, path, form)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Empty(t, rec.Header().Get("Location"), path)
	}

	d, err := s.store.Donations().GetByTxnID(context.Background(), created.Donation.TxnID)
	require.NoError(t, err)
	assert.Equal(t, models.DonationPending, d.Status)
	assert.Nil(t, d.ErrorMessage)
}

func TestCreateDonation_AuthenticatedCallerRecorded(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	tok := s.token(t, models.RoleUser)

	body := donationBody()
	body["user_id"] = 777
	rec := s.do(t, http.MethodPost, "/donations", body, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out createResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Donation.UserID)
	assert.NotEqual(t, int64(777), *out.Donation.UserID)

	anon := s.do(t, http.MethodPost, "/donations", body, "")
	require.Equal(t, http.StatusCreated, anon.Code)
	var anonOut createResp
	require.NoError(t, json.Unmarshal(anon.Body.Bytes(), &anonOut))
	assert.Nil(t, anonOut.Donation.UserID)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	admin := s.token(t, models.RoleAdmin)
	user := s.token(t, models.RoleUser)

	rec := s.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Annadaan"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Annadaan"}, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Annadaan"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.DonationCategory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	catPath := "/api/categories/" + strconv.FormatInt(cat.ID, 10)

	rec = s.do(t, http.MethodPost, "/api/cards", map[string]any{"title": "Feed 10", "amount": 1100, "category_id": cat.ID}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, catPath+"/cards", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cards []models.DonationCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	assert.Len(t, cards, 1)

	rec = s.do(t, http.MethodDelete, catPath, nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, catPath+"/bank-details", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/donations", nil, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContentAndContactRoutes(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	admin := s.token(t, models.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/social-links", map[string]any{"title": "YouTube", "link_url": "https://youtube.com/@seva"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/social-links", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.ContentItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, models.ContentSocialLinks, items[0].Kind)

	rec = s.do(t, http.MethodPost, "/api/contact-messages",
		map[string]any{"name": "Ravi", "email": "ravi@example.com", "message": "Timings?"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m models.ContactMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))

	rec = s.do(t, http.MethodGet, "/api/contact-messages", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/contact-messages/"+strconv.FormatInt(m.ID, 10)+"/read", nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoginAndRefresh(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	require.NoError(t, s.users.EnsureAdmin(context.Background(), "admin@seva.org", "changeme123"))

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@seva.org", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@seva.org", "password": "changeme123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = s.do(t, http.MethodGet, "/api/users", nil, login.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": login.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, payment.ModeGateway)
	rec := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
