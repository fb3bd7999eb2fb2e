package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/user"
	metricsvc "github.com/trezcool/shule/services/metrics"
	testutil "github.com/trezcool/shule/tests"
)

type httpErr struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var errMissingToken = httpErr{Message: "missing or malformed jwt"}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	school   string // X-School-ID
	wantCode int
	wantErr  *httpErr
}

type app struct {
	echoapi.Server
	env    *testutil.Env
	tokens *echoapi.TokenIssuer
}

func setup(t *testing.T) *app {
	env := testutil.NewEnv(t)
	tokens := echoapi.NewTokenIssuer(env.Conf)
	srv := echoapi.NewServer(&echoapi.Options{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Zap:            zap.NewNop(),
		Metrics:        metricsvc.New(),
		Validate:       env.Validate,
		Translator:     env.Translator,
		Authz:          env.Authz,
		Tokens:         tokens,
		DisableReqLogs: true,
		UserSvc:        env.UserSvc,
		SchoolSvc:      env.SchoolSvc,
		AcademicSvc:    env.AcademicSvc,
		StudentSvc:     env.StudentSvc,
		AttendanceSvc:  env.AttendanceSvc,
		FinanceSvc:     env.FinanceSvc,
		HostelSvc:      env.HostelSvc,
		LibrarySvc:     env.LibrarySvc,
		InventorySvc:   env.InventorySvc,
		RBACSvc:        env.RBACSvc,
	})
	return &app{Server: srv, env: env, tokens: tokens}
}

func (a *app) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := a.tokens.GenerateToken(a.tokens.Claims(usr))
	require.NoError(t, err)
	return token
}

func (a *app) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if tt.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(tt.body))
	}
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, tt.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if tt.token != "" {
		req.Header.Set("Authorization", "Bearer "+tt.token)
	}
	if tt.school != "" {
		req.Header.Set("X-School-ID", tt.school)
	}
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	return rec
}

// run performs the request and checks the status code, plus the error body when one is expected.
func (a *app) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	rec := a.do(t, tt)
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantErr != nil {
		var got httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, *tt.wantErr, got)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
