package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/scanmark/backend/apps/api/echo"
	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/marking"
	"github.com/scanmark/backend/core/user"
	auditsvc "github.com/scanmark/backend/services/audit"
	capabilitysvc "github.com/scanmark/backend/services/capability"
	emailsvc "github.com/scanmark/backend/services/email"
	gradesvc "github.com/scanmark/backend/services/grades"
	dummydb "github.com/scanmark/backend/storage/database/dummy"
)

var (
	conf    *core.Config
	usrRepo user.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt", URL: "/login"}
)

func setup(t *testing.T) (Server, *dummydb.DB) {
	t.Helper()

	conf = core.NewTestConfig()
	conf.TestMode = false // exercise the JWT path unless a test flips it back

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	markingRepo := dummydb.NewMarkingRepository(db)

	// set up services
	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	markingSvc := marking.NewService(
		conf,
		markingRepo,
		usrSvc,
		capabilitysvc.NewResolver(markingRepo),
		auditsvc.NewLogSink(logger),
		rendererStub{},
		gradesvc.NewFinalizer(markingRepo),
		nil, /* cache */
		logger,
	)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	// set up server
	return NewServer(
		&Options{
			Conf:           conf,
			Logger:         logger,
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			MarkingSvc:     markingSvc,
			Validate:       validate,
			Translator:     translator,
		},
	), db
}

// rendererStub stands in for the page render service.
type rendererStub struct{}

func (rendererStub) Rotate(_ context.Context, p marking.Page) (marking.Page, error) {
	p.ImageURL += "?rotated"
	p.AnonymousImageURL += "?rotated"
	p.Width, p.Height = p.Height, p.Width
	return p, nil
}

func createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
	URL   string `json:"url,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
