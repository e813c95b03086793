package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/user"
)

const testPassword = "LolC@t123"

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
	extra    interface{}
}

// reset empties the DB and the sent emails.
func reset(t *testing.T) {
	t.Helper()
	db.Reset()
	mailSvc.Reset()
}

func createUser(t *testing.T, name, email string, roles ...string) user.User {
	t.Helper()
	if roles == nil {
		roles = []string{}
	}
	usr, err := deps.UserSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        testPassword,
		PasswordConfirm: testPassword,
		Roles:           roles,
	})
	require.NoError(t, err, "creating user")
	return usr
}

// refreshUser returns the stored version of usr.
func refreshUser(t *testing.T, usr user.User) user.User {
	t.Helper()
	usr, err := deps.UserSvc.GetByID(context.Background(), usr.ID)
	require.NoError(t, err, "finding user by ID")
	return usr
}

// getToken returns an OTP verified access token for usr.
func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	tokens, err := deps.AuthSvc.IssueTokens(usr, true /* otpVerified */)
	require.NoError(t, err, "issuing tokens")
	return tokens.AccessToken
}

// getPendingToken returns an access token issued before the OTP step.
func getPendingToken(t *testing.T, usr user.User) string {
	t.Helper()
	tokens, err := deps.AuthSvc.IssueTokens(usr, false /* otpVerified */)
	require.NoError(t, err, "issuing tokens")
	return tokens.AccessToken
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

// do serves an authed request and returns the recorder.
func do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "decoding %s", rec.Body.String())
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
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
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

func runTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
