package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		write  func(c *gin.Context)
		status int
		body   string
	}{
		{"ok", func(c *gin.Context) { OK(c, gin.H{"a": 1}) }, http.StatusOK, `{"success":true,"data":{"a":1}}`},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": 5}) }, http.StatusCreated, `{"success":true,"data":{"id":5}}`},
		{"not found", func(c *gin.Context) { NotFound(c, "no offer") }, http.StatusNotFound, `{"success":false,"error":"no offer"}`},
		{"unavailable", func(c *gin.Context) { ServiceUnavailable(c, "database not available") }, http.StatusServiceUnavailable, `{"success":false,"error":"database not available"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tc.write(c)
			require.Equal(t, tc.status, w.Code)
			require.JSONEq(t, tc.body, w.Body.String())
		})
	}
}
