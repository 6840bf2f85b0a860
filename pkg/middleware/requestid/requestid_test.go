package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serve(header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	var seen string
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareKeepsInboundID(t *testing.T) {
	rec, seen := serve("trace-42")
	assert.Equal(t, "trace-42", seen)
	assert.Equal(t, "trace-42", rec.Header().Get(headerKey))
}

func TestMiddlewareGeneratesID(t *testing.T) {
	rec, seen := serve("")
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(headerKey))

	_, seen = serve(strings.Repeat("x", maxLength+1))
	_, err = uuid.Parse(seen)
	assert.NoError(t, err)
}
