package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestSameOrigin(t *testing.T) {
	t.Parallel()

	mw := SameOrigin(Config{CookieName: "session", TrustForwardedProto: true})
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	tests := []struct {
		name    string
		method  string
		cookie  bool
		headers map[string]string
		want    int
	}{
		{name: "safe method", method: http.MethodGet, cookie: true, want: http.StatusNoContent},
		{name: "no cookie", method: http.MethodPost, want: http.StatusNoContent},
		{name: "bearer request", method: http.MethodPost, cookie: true,
			headers: map[string]string{echo.HeaderAuthorization: "Bearer x"}, want: http.StatusNoContent},
		{name: "matching origin", method: http.MethodPost, cookie: true,
			headers: map[string]string{"Origin": "http://shop.example"}, want: http.StatusNoContent},
		{name: "matching referer", method: http.MethodDelete, cookie: true,
			headers: map[string]string{"Referer": "http://shop.example/admin/products"}, want: http.StatusNoContent},
		{name: "forwarded https", method: http.MethodPost, cookie: true,
			headers: map[string]string{"Origin": "https://shop.example", echo.HeaderXForwardedProto: "https"}, want: http.StatusNoContent},
		{name: "scheme mismatch", method: http.MethodPost, cookie: true,
			headers: map[string]string{"Origin": "https://shop.example"}, want: http.StatusForbidden},
		{name: "foreign origin", method: http.MethodPut, cookie: true,
			headers: map[string]string{"Origin": "http://evil.example"}, want: http.StatusForbidden},
		{name: "no origin", method: http.MethodPost, cookie: true, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			req := httptest.NewRequest(tt.method, "/api/admin/x", nil)
			req.Host = "shop.example"
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: "session", Value: "t"})
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := mw(ok)(c)
			if tt.want == http.StatusForbidden {
				var he *echo.HTTPError
				if assert.ErrorAs(t, err, &he) {
					assert.Equal(t, http.StatusForbidden, he.Code)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
