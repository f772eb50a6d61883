package organizations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/models"
	"github.com/mphomathabathe/Baobab/internal/testutil"
)

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	h := NewHandler(NewRepository(db), nil)

	r := gin.New()
	r.GET("/organisations", h.List)
	r.POST("/organisations", h.Create)
	r.PUT("/organisations/:id/email-from", h.SetEmailFrom)
	r.POST("/organisations/:id/events", h.CreateEvent)
	r.GET("/organisations/:id/events", h.ListEvents)
	return r, db
}

func send(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndSetEmailFrom(t *testing.T) {
	r, db := newRouter(t)

	w := send(r, http.MethodPost, "/organisations", gin.H{"name": "Deep Learning Indaba", "system_name": "indaba"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var org models.Organisation
	require.NoError(t, db.First(&org).Error)
	require.Nil(t, org.EmailFrom)

	w = send(r, http.MethodPut, "/organisations/1/email-from", gin.H{"email_from": "  indaba@example.org "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, db.First(&org, 1).Error)
	require.NotNil(t, org.EmailFrom)
	require.Equal(t, "indaba@example.org", *org.EmailFrom)

	w = send(r, http.MethodPut, "/organisations/1/email-from", gin.H{"email_from": ""})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&org, 1).Error)
	require.Nil(t, org.EmailFrom)
}

func TestEmailFromValidation(t *testing.T) {
	r, _ := newRouter(t)

	for _, bad := range []string{"not-an-address", "Indaba <indaba@example.org>"} {
		w := send(r, http.MethodPost, "/organisations", gin.H{"name": "Indaba", "email_from": bad})
		require.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w := send(r, http.MethodPut, "/organisations/404/email-from", gin.H{"email_from": "a@example.org"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents(t *testing.T) {
	r, db := newRouter(t)
	testutil.Create(t, db, &models.Organisation{ID: 1, Name: "Indaba"})

	w := send(r, http.MethodPost, "/organisations/1/events", gin.H{"name": "Indaba 2020"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(r, http.MethodPost, "/organisations/2/events", gin.H{"name": "Orphan"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organisations/1/events", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Indaba 2020", body.Data[0].Name)
}
