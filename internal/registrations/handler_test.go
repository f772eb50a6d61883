package registrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mphomathabathe/Baobab/internal/middleware"
	"github.com/mphomathabathe/Baobab/internal/models"
	"github.com/mphomathabathe/Baobab/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFiles struct {
	deleted []string
	err     error
}

func (f *fakeFiles) PresignUpload(_ context.Context, key, contentType string) (string, error) {
	return "https://uploads.example.com/" + key + "?ct=" + contentType, f.err
}

func (f *fakeFiles) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://uploads.example.com/" + key + "?get", f.err
}

func (f *fakeFiles) DeleteUpload(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.err
}

type fixture struct {
	db      *gorm.DB
	handler *Handler
	mail    *captureMailer
	files   *fakeFiles
	router  *gin.Engine
}

// newFixture seeds organisation 1 / event 1, user 3 (Ada) holding offer 5, and questions
// 1 (multi-choice) and 2 (file) on form 9. Form 9 itself is not created.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	from := "indaba@example.org"
	testutil.Create(t, db,
		&models.Organisation{ID: 1, Name: "Deep Learning Indaba", EmailFrom: &from},
		&models.Event{ID: 1, Name: "Indaba 2020", OrganisationID: 1},
		&models.AppUser{ID: 3, Email: "ada@example.com", Firstname: "Ada", Lastname: "Lovelace", UserTitle: "Dr", Password: "x"},
		&models.AppUser{ID: 4, Email: "grace@example.com", Firstname: "Grace", Lastname: "Hopper", Password: "x"},
		&models.Offer{ID: 5, UserID: 3, EventID: 1},
		&models.RegistrationQuestion{ID: 1, RegistrationFormID: 9, Headline: "Dietary requirements", Description: "Pick one",
			Type: models.QuestionTypeMultiChoice, Options: []models.QuestionOption{{Value: "veg", Label: "Vegetarian"}}},
		&models.RegistrationQuestion{ID: 2, RegistrationFormID: 9, Headline: "Passport", Description: "Upload a scan",
			Type: models.QuestionTypeFile},
	)

	m := &captureMailer{}
	files := &fakeFiles{}
	h := NewHandler(NewRepository(db), NewNotifier(m, nil), 1, nil)
	h.SetFileStore(files)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			uid, err := strconv.ParseUint(id, 10, 64)
			require.NoError(t, err)
			c.Set(middleware.ContextUserID, uint(uid))
		}
		c.Next()
	})
	r.GET("/registration", h.Get)
	r.POST("/registration", h.Create)
	r.PUT("/registration", h.Update)
	r.POST("/registration/uploads", h.CreateUpload)
	r.GET("/registration/uploads", h.GetUpload)

	return &fixture{db: db, handler: h, mail: m, files: files, router: r}
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (f *fixture) answers(t *testing.T, registrationID uint) []models.RegistrationAnswer {
	t.Helper()
	var list []models.RegistrationAnswer
	require.NoError(t, f.db.Where("registration_id = ?", registrationID).Order("id").Find(&list).Error)
	return list
}

func createBody(answers ...AnswerPayload) gin.H {
	return gin.H{"offer_id": 5, "registration_form_id": 9, "answers": answers}
}

func TestCreate_DropsUnknownQuestions(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/registration", "3", createBody(
		AnswerPayload{RegistrationQuestionID: 1, Value: "A"},
		AnswerPayload{RegistrationQuestionID: 999, Value: "X"},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg models.Registration
	env := decode(t, w, &reg)
	require.True(t, env.Success)
	require.Equal(t, uint(5), reg.OfferID)
	require.Equal(t, uint(9), reg.RegistrationFormID)
	require.False(t, reg.Confirmed)
	require.NotNil(t, reg.ConfirmationEmailSentAt)

	got := f.answers(t, reg.ID)
	require.Len(t, got, 1)
	require.Equal(t, uint(1), got[0].RegistrationQuestionID)
	require.Equal(t, "A", got[0].Value)
}

func TestCreate_ProvisionsMissingForm(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/registration", "3", createBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var form models.RegistrationForm
	require.NoError(t, f.db.First(&form, 9).Error)
	require.Equal(t, uint(1), form.EventID)
}

func TestCreate_SendsConfirmation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/registration", "3", createBody(
		AnswerPayload{RegistrationQuestionID: 1, Value: "veg"},
		AnswerPayload{RegistrationQuestionID: 2, Value: "registration-uploads/3/scan.pdf"},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Registration", msg.Subject)
	require.Equal(t, "indaba@example.org", msg.From)
	require.True(t, strings.HasPrefix(msg.BodyText, "Dear Dr Ada Lovelace,\nregistration is pending confirmation"))
	require.Contains(t, msg.BodyText, "Answer: Vegetarian\n")
	require.Contains(t, msg.BodyText, "Answer: Uploaded File\n")
}

func TestCreate_MailFailureStillCreated(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	w := f.do(t, http.MethodPost, "/registration", "3", createBody(AnswerPayload{RegistrationQuestionID: 1, Value: "veg"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var n int64
	require.NoError(t, f.db.Model(&models.Registration{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestCreate_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/registration", "3", gin.H{"offer_id": 404, "registration_form_id": 9})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "offer not found", decode(t, w, nil).Error)

	testutil.Create(t, f.db, &models.Offer{ID: 6, UserID: 77, EventID: 1})
	w = f.do(t, http.MethodPost, "/registration", "3", gin.H{"offer_id": 6, "registration_form_id": 9})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "user not found", decode(t, w, nil).Error)
	require.Empty(t, f.mail.sent)
}

func TestCreate_InvalidBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/registration", "3", gin.H{"registration_form_id": 9})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate_DatabaseFailureIsOpaque(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&models.RegistrationAnswer{}))

	w := f.do(t, http.MethodPost, "/registration", "3", createBody(AnswerPayload{RegistrationQuestionID: 1, Value: "veg"}))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w, nil)
	require.Equal(t, msgDBUnavailable, env.Error)

	// The transaction rolled back, so no half-written registration remains.
	var n int64
	require.NoError(t, f.db.Model(&models.Registration{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestGet_NoOffer(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/registration", "4", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "no offer", decode(t, w, nil).Error)
}

func TestGet_NoRegistration(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/registration", "3", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "no registration", decode(t, w, nil).Error)
}

func TestGet_NoForm(t *testing.T) {
	f := newFixture(t)
	testutil.Create(t, f.db, &models.Registration{ID: 20, OfferID: 5, RegistrationFormID: 404})

	w := f.do(t, http.MethodGet, "/registration", "3", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "no registration form", decode(t, w, nil).Error)
}

func TestGet_ReturnsAnswers(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/registration", "3", createBody(AnswerPayload{RegistrationQuestionID: 1, Value: "veg"}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/registration", "3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view RegistrationView
	decode(t, w, &view)
	require.NotZero(t, view.RegistrationID)
	require.Equal(t, uint(5), view.OfferID)
	require.Equal(t, uint(9), view.RegistrationFormID)
	require.Len(t, view.Answers, 1)
	require.Equal(t, "veg", view.Answers[0].Value)
}

func TestGet_DatabaseFailureIsOpaque(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&models.Offer{}))

	w := f.do(t, http.MethodGet, "/registration", "3", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, msgDBUnavailable, decode(t, w, nil).Error)
}

func TestUpdate_OverwritesAndInserts(t *testing.T) {
	f := newFixture(t)
	testutil.Create(t, f.db,
		&models.RegistrationForm{ID: 9, EventID: 1},
		&models.RegistrationForm{ID: 10, EventID: 1},
		&models.Registration{ID: 20, OfferID: 5, RegistrationFormID: 9},
		&models.RegistrationAnswer{ID: 100, RegistrationID: 20, RegistrationQuestionID: 1, Value: "veg"},
	)

	w := f.do(t, http.MethodPut, "/registration", "3", gin.H{
		"registration_id":      20,
		"registration_form_id": 10,
		"answers": []AnswerPayload{
			{RegistrationQuestionID: 1, Value: "none"},
			{RegistrationQuestionID: 2, Value: "registration-uploads/3/new.pdf"},
			{RegistrationQuestionID: 999, Value: "dropped"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := f.answers(t, 20)
	require.Len(t, got, 2)
	require.Equal(t, uint(100), got[0].ID, "existing answer must be overwritten in place")
	require.Equal(t, "none", got[0].Value)
	require.Equal(t, uint(2), got[1].RegistrationQuestionID)

	var reg models.Registration
	require.NoError(t, f.db.First(&reg, 20).Error)
	require.Equal(t, uint(10), reg.RegistrationFormID)
}

func TestUpdate_ScopesAnswersToRegistration(t *testing.T) {
	f := newFixture(t)
	testutil.Create(t, f.db,
		&models.RegistrationForm{ID: 9, EventID: 1},
		&models.Offer{ID: 6, UserID: 4, EventID: 1},
		&models.Registration{ID: 20, OfferID: 5, RegistrationFormID: 9},
		&models.Registration{ID: 21, OfferID: 6, RegistrationFormID: 9},
		&models.RegistrationAnswer{ID: 100, RegistrationID: 21, RegistrationQuestionID: 1, Value: "veg"},
	)

	w := f.do(t, http.MethodPut, "/registration", "3", gin.H{
		"registration_id":      20,
		"registration_form_id": 9,
		"answers":              []AnswerPayload{{RegistrationQuestionID: 1, Value: "none"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, "veg", f.answers(t, 21)[0].Value, "another registration's answer must not change")
	mine := f.answers(t, 20)
	require.Len(t, mine, 1)
	require.Equal(t, "none", mine[0].Value)
}

func TestUpdate_ReplacedFileIsDeleted(t *testing.T) {
	f := newFixture(t)
	testutil.Create(t, f.db,
		&models.RegistrationForm{ID: 9, EventID: 1},
		&models.Registration{ID: 20, OfferID: 5, RegistrationFormID: 9},
		&models.RegistrationAnswer{RegistrationID: 20, RegistrationQuestionID: 2, Value: "registration-uploads/3/old.pdf"},
	)

	w := f.do(t, http.MethodPut, "/registration", "3", gin.H{
		"registration_id":      20,
		"registration_form_id": 9,
		"answers":              []AnswerPayload{{RegistrationQuestionID: 2, Value: "registration-uploads/3/new.pdf"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, []string{"registration-uploads/3/old.pdf"}, f.files.deleted)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/registration", "3", gin.H{"registration_id": 404, "registration_form_id": 9})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "registration not found", decode(t, w, nil).Error)

	testutil.Create(t, f.db, &models.Registration{ID: 30, OfferID: 404, RegistrationFormID: 9})
	w = f.do(t, http.MethodPut, "/registration", "3", gin.H{"registration_id": 30, "registration_form_id": 9})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "offer not found", decode(t, w, nil).Error)
}

func TestUpdate_DatabaseFailureIsBadRequest(t *testing.T) {
	f := newFixture(t)
	testutil.Create(t, f.db,
		&models.RegistrationForm{ID: 9, EventID: 1},
		&models.Registration{ID: 20, OfferID: 5, RegistrationFormID: 9},
	)
	require.NoError(t, f.db.Migrator().DropTable(&models.RegistrationAnswer{}))

	w := f.do(t, http.MethodPut, "/registration", "3", gin.H{
		"registration_id":      20,
		"registration_form_id": 9,
		"answers":              []AnswerPayload{{RegistrationQuestionID: 1, Value: "none"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "could not update registration", decode(t, w, nil).Error)
}

func TestCreateUpload(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/registration/uploads", "3", gin.H{"registration_question_id": 2, "filename": "passport.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Key         string `json:"key"`
		UploadURL   string `json:"upload_url"`
		ContentType string `json:"content_type"`
	}
	decode(t, w, &out)
	require.True(t, strings.HasPrefix(out.Key, "registration-uploads/3/"))
	require.Contains(t, out.UploadURL, out.Key)
	require.Equal(t, "application/pdf", out.ContentType)

	w = f.do(t, http.MethodPost, "/registration/uploads", "3", gin.H{"registration_question_id": 1, "filename": "passport.pdf"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/registration/uploads", "3", gin.H{"registration_question_id": 2, "filename": "run.exe"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/registration/uploads", "3", gin.H{"registration_question_id": 404, "filename": "a.pdf"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUpload_OwnFilesOnly(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/registration/uploads?key=registration-uploads/3/a.pdf", "3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/registration/uploads?key=registration-uploads/3/a.pdf", "4", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploads_NotConfigured(t *testing.T) {
	f := newFixture(t)
	f.handler.SetFileStore(nil)

	w := f.do(t, http.MethodPost, "/registration/uploads", "3", gin.H{"registration_question_id": 2, "filename": "a.pdf"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpdate_OtherUserDeletesNothing(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/registration", "3", createBody(
		AnswerPayload{RegistrationQuestionID: 2, Value: "registration-uploads/3/passport.pdf"},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg models.Registration
	decode(t, w, &reg)

	w = f.do(t, http.MethodPut, "/registration", "4", gin.H{
		"registration_id":      reg.ID,
		"registration_form_id": 9,
		"answers":              []AnswerPayload{{RegistrationQuestionID: 2, Value: "registration-uploads/4/other.pdf"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, f.files.deleted)
}

func TestFileAnswers_ForeignKeysDropped(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/registration", "3", createBody(
		AnswerPayload{RegistrationQuestionID: 1, Value: "veg"},
		AnswerPayload{RegistrationQuestionID: 2, Value: "registration-uploads/4/not-mine.pdf"},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg models.Registration
	decode(t, w, &reg)
	got := f.answers(t, reg.ID)
	require.Len(t, got, 1)
	require.Equal(t, uint(1), got[0].RegistrationQuestionID)

	w = f.do(t, http.MethodPut, "/registration", "3", gin.H{
		"registration_id":      reg.ID,
		"registration_form_id": 9,
		"answers":              []AnswerPayload{{RegistrationQuestionID: 2, Value: "registration-uploads/4/not-mine.pdf"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.answers(t, reg.ID), 1)
}

func TestAnswersWithoutQuestionAreDropped(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/registration", "3", gin.H{
		"offer_id":             5,
		"registration_form_id": 9,
		"answers":              []gin.H{{"registration_question_id": 1, "value": "veg"}, {"value": "orphan"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg models.Registration
	decode(t, w, &reg)
	require.Len(t, f.answers(t, reg.ID), 1)

	w = f.do(t, http.MethodPut, "/registration", "3", gin.H{
		"registration_id":      reg.ID,
		"registration_form_id": 9,
		"answers":              []gin.H{{"registration_question_id": 0, "value": "orphan"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.answers(t, reg.ID), 1)
}
