package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/rates", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/rates", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	return r
}

func request(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/rates", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListedOriginGetsCredentials(t *testing.T) {
	r := newRouter([]string{"https://ops.example.com/"})

	rec := request(r, http.MethodGet, "https://OPS.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://OPS.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))

	rec = request(r, http.MethodOptions, "https://ops.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, allowedMethods, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestUnlistedOriginIsNotEchoed(t *testing.T) {
	r := newRouter([]string{"https://ops.example.com"})

	rec := request(r, http.MethodGet, "https://evil.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = request(r, http.MethodOptions, "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpenPolicyNeverSendsCredentials(t *testing.T) {
	r := newRouter(nil)

	rec := request(r, http.MethodGet, "https://any.example.com")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = request(r, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
