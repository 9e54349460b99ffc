package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerExposesBuildInfo(t *testing.T) {
	reg := NewRegistry("1.2.3")
	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `engage_build_info{version="1.2.3"} 1`)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
