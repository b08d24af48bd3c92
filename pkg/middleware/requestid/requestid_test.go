package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestIDRouter(capture *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) {
		*capture = Value(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	r := newRequestIDRouter(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(Header))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRequestIDHonorsInbound(t *testing.T) {
	var seen string
	r := newRequestIDRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(Header, "upstream-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "upstream-42", seen)
	assert.Equal(t, "upstream-42", w.Header().Get(Header))
}
