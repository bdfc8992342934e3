package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	r := newEngine(APIKeyAuth(AuthConfig{Enabled: true, APIKeys: []string{"classroom-key-1"}}, zap.NewNop()))

	tests := []struct {
		name   string
		setup  func(*http.Request)
		target string
		want   int
	}{
		{"缺少Key", func(*http.Request) {}, "/x", http.StatusUnauthorized},
		{"无效Key", func(r *http.Request) { r.Header.Set("X-API-Key", "nope") }, "/x", http.StatusForbidden},
		{"Header", func(r *http.Request) { r.Header.Set("X-API-Key", "classroom-key-1") }, "/x", http.StatusOK},
		{"Bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer classroom-key-1") }, "/x", http.StatusOK},
		{"Query", func(*http.Request) {}, "/x?api_key=classroom-key-1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("未启用直接放行", func(t *testing.T) {
		r := newEngine(APIKeyAuth(AuthConfig{}, zap.NewNop()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "clas****ey-1", maskAPIKey("classroom-key-1"))
}

func TestCORS(t *testing.T) {
	t.Run("默认允许所有来源", func(t *testing.T) {
		r := newEngine(CORS(nil))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("白名单", func(t *testing.T) {
		r := newEngine(CORS([]string{"https://editor.example"}))
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", "https://editor.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://editor.example", w.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://other.example")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestTracing(t *testing.T) {
	r := newEngine(RequestTracing(), AccessLog(zap.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}
