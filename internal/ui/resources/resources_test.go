package resources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticPath(t *testing.T) {
	assert.Equal(t, "/static/core_main_app/css/main.css", StaticPath("core_main_app/css/main.css"))
	assert.Equal(t, "/static/a.js", StaticPath("/a.js"))
}

func TestExists(t *testing.T) {
	assert.True(t, Exists("core_main_app/css/main.css"))
	assert.False(t, Exists("core_main_app/css/missing.css"))
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/core_main_app/css/main.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}
