package form

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `form:"username"         validate:"notblank"        msg:"Username cannot be empty"`
	Password string `form:"password"         validate:"min=6"           msg:"Password must be at least 6 characters long"`
	Confirm  string `form:"confirm_password" validate:"eqfield=Password" msg:"Passwords do not match"`
	Bio      string `form:"bio"              validate:"max=5"`
}

func TestCSRF_RoundTrip(t *testing.T) {
	SetSecret(base64.RawURLEncoding.EncodeToString([]byte(strings.Repeat("k", 32))))

	tok, err := GenerateToken()
	require.NoError(t, err)
	assert.True(t, VerifyToken(tok))

	assert.False(t, VerifyToken(""))
	assert.False(t, VerifyToken("not-a-token"))

	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[len(raw)-1] ^= 0xff
	assert.False(t, VerifyToken(base64.RawURLEncoding.EncodeToString(raw)))

	old, err := tokenAt(time.Now().Add(-3 * time.Hour))
	require.NoError(t, err)
	assert.False(t, VerifyToken(old))

	future, err := tokenAt(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, VerifyToken(future))
}

func TestCSRF_KeyRotationInvalidates(t *testing.T) {
	SetSecret(strings.Repeat("a", 40))
	tok, err := GenerateToken()
	require.NoError(t, err)

	SetSecret(strings.Repeat("b", 40))
	assert.False(t, VerifyToken(tok))
}

func TestValidate_MessagesInOrder(t *testing.T) {
	errs := Validate(&signup{Username: "   ", Password: "abc", Confirm: "abd"})
	require.Len(t, errs, 3)
	assert.Equal(t, "Username cannot be empty", errs.First())
	assert.Equal(t, "Password must be at least 6 characters long", errs.Get("password"))
	assert.Equal(t, "Passwords do not match", errs.Get("confirm_password"))

	errs = Validate(&signup{Username: "ann", Password: "secret1", Confirm: "secret1", Bio: "too long"})
	require.Len(t, errs, 1)
	assert.Equal(t, "bio", errs[0].Name)
	assert.Equal(t, "Must be less than 5 characters.", errs[0].Message)

	assert.Nil(t, Validate(&signup{Username: "ann", Password: "secret1", Confirm: "secret1"}))
}

func postForm(vals url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleSubmit(t *testing.T) {
	SetSecret("")
	tok, err := GenerateToken()
	require.NoError(t, err)

	var dst signup
	err = HandleSubmit(postForm(url.Values{
		TokenField:         {tok},
		"username":         {"ann"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	}), &dst)
	require.NoError(t, err)
	assert.Equal(t, "ann", dst.Username)

	err = HandleSubmit(postForm(url.Values{TokenField: {tok}, "username": {""}}), &signup{})
	fields, ok := IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Username cannot be empty", fields.First())

	err = HandleSubmit(postForm(url.Values{"username": {"ann"}}), &signup{})
	fields, ok = IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, TokenMessage, fields.First())

	assert.ErrorIs(t, Parse(postForm(url.Values{})), ErrInvalidToken)
}
