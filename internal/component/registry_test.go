package component

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/view"
)

func requestWithID(id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/x/"+id, nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestParamID(t *testing.T) {
	id, err := ParamID(requestWithID("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3", "99999999999999999999"} {
		_, err := ParamID(requestWithID(bad), "id")
		assert.ErrorIs(t, err, view.ErrNotFound, bad)
	}
}

func TestInline(t *testing.T) {
	cases := []struct {
		err  error
		msg  string
		show bool
	}{
		{&api.Error{StatusCode: http.StatusConflict, Message: "Username already taken"}, "Username already taken", true},
		{&api.Error{StatusCode: http.StatusForbidden}, "fallback", true},
		{&api.Error{Message: api.NetworkMessage}, api.NetworkMessage, true},
		{&api.Error{StatusCode: http.StatusUnauthorized, Message: "Unauthorized path"}, "", false},
		{&api.Error{StatusCode: http.StatusBadRequest, Message: "Unauthorized path"}, "", false},
		{&api.Error{StatusCode: http.StatusNotFound, Message: "Recipe not found"}, "", false},
		{&api.Error{StatusCode: http.StatusBadGateway, Message: "Bad Gateway"}, "", false},
		{errors.New("decode: unexpected EOF"), "", false},
	}
	for _, tc := range cases {
		msg, show := Inline(tc.err, "fallback")
		assert.Equal(t, tc.show, show, tc.err.Error())
		assert.Equal(t, tc.msg, msg, tc.err.Error())
	}
}

func TestSeeOther(t *testing.T) {
	rec := httptest.NewRecorder()
	SeeOther(rec, httptest.NewRequest(http.MethodPost, "/a", nil), "/b")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/b", rec.Header().Get("Location"))
}
