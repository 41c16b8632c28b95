package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.6367.60 Safari/537.36"

func TestClientIP(t *testing.T) {
	require.NoError(t, SetTrustedProxies([]string{"10.0.0.0/8"}))
	t.Cleanup(func() { _ = SetTrustedProxies(nil) })

	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"untrusted peer ignores headers", map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-Ip": "203.0.113.8"}, "192.0.2.1:5555", "192.0.2.1"},
		{"proxy hop skipped", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.9"},
		{"client-set prefix ignored", map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"junk stops the walk", map[string]string{"X-Forwarded-For": "junk, 10.0.0.5"}, "10.0.0.2:1234", "10.0.0.2"},
		{"real ip from proxy", map[string]string{"X-Real-Ip": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(r).String())
		})
	}
}

func TestClientIP_NoProxiesTrusted(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "10.0.0.2", ClientIP(r).String())
}

func TestSetTrustedProxies_RejectsBadCIDR(t *testing.T) {
	assert.Error(t, SetTrustedProxies([]string{"10.0.0.1"}))
}

func TestEnrich_AttachesInfo(t *testing.T) {
	var got *RequestInfo
	h := Enrich(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/recipes?q=1", nil)
	r.Header.Set("User-Agent", chromeMac)
	r.Header.Set("Accept-Language", "en-US;q=0.9,fr")
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, got)
	assert.Equal(t, "Chrome", got.UA.Browser)
	assert.Equal(t, "Desktop", got.UA.Device)
	assert.False(t, got.UA.IsBot)
	assert.Equal(t, "en-us", got.UA.PrimaryLang)
	assert.Equal(t, "/recipes", got.URL.Path)
	assert.Empty(t, got.Geo.CountryISO)
}

func TestFromContext_NilWithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, FromContext(r.Context()))
}

func TestInitGeo_EmptyPathDisables(t *testing.T) {
	require.NoError(t, InitGeo(""))
	assert.Error(t, InitGeo("/nonexistent/GeoLite2-City.mmdb"))
}
