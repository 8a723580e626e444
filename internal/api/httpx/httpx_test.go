package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevatrust/seva-donations/internal/apperr"
)

func TestWriteAppError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"validation", apperr.Validation("validation failed", apperr.FieldError{Field: "email", Msg: "must be a valid email"}), 400, "validation_error", "validation failed"},
		{"integrity", apperr.Integrity("payment verification failed"), 400, "integrity_error", "payment verification failed"},
		{"unauthorized", apperr.Unauthorized("missing token"), 401, "unauthorized", "missing token"},
		{"forbidden", apperr.Forbidden("admin only"), 403, "forbidden", "admin only"},
		{"not found", apperr.NotFound("donation not found"), 404, "not_found", "donation not found"},
		{"conflict", apperr.Conflict("cards exist"), 409, "conflict", "cards exist"},
		{"internal hides cause", errors.New("dial tcp: secret host"), 500, "internal_error", "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAppError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)

			assert.Equal(t, tc.status, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(r, &dst)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "a", dst.Name)
}

func TestPage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=9999&offset=20", nil)
	limit, offset := Page(r, 50, 500)
	assert.Equal(t, 500, limit)
	assert.Equal(t, 20, offset)

	r = httptest.NewRequest(http.MethodGet, "/?limit=-1&offset=x", nil)
	limit, offset = Page(r, 50, 500)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
}
