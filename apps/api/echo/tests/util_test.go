package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/assistant"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/llm"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
	"github.com/trezcool/elimu/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app    Server
	conf   *core.Config
	usrSvc user.Service
	crsSvc course.Service
	prgSvc progress.Service
	ai     *llm.MockProvider
}

// setup starts a server over a fresh database with a mock AI provider.
func setup(t *testing.T) *env {
	mock := llm.NewMockProvider()
	e := setupWithProvider(t, mock)
	e.ai = mock
	return e
}

// setupWithProvider starts a server using provider, which may be nil.
func setupWithProvider(t *testing.T, provider assistant.Provider) *env {
	conf := testutil.Config()
	db := testutil.PrepareDB(t)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	usrSvc := user.NewService(db, sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf))
	crsSvc := course.NewService(db, sqlxrepos.NewCourseRepository(db))
	prgSvc := progress.NewService(db, sqlxrepos.NewProgressRepository(db), crsSvc)

	app := NewServer(conf, nil /* shutdown */, &Deps{
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		UserSvc:      usrSvc,
		CourseSvc:    crsSvc,
		ProgressSvc:  prgSvc,
		AnalyticsSvc: analytics.NewService(sqlxrepos.NewAnalyticsRepository(db), crsSvc),
		AssistantSvc: assistant.NewService(provider, conf.AI.MaxOutputTokens, logger),
	})
	return &env{app: app, conf: conf, usrSvc: usrSvc, crsSvc: crsSvc, prgSvc: prgSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

// serve runs tt against app and returns the recorder.
func serve(app Server, tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func runTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(app, tt))
		})
	}
}

func getToken(t *testing.T, e *env, usr user.User) string {
	token, err := GenerateToken(e.conf, usr)
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

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
