package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-be/internal/auth"
	"github.com/taskboard/taskboard-be/internal/database"
	"github.com/taskboard/taskboard-be/internal/models"
	"github.com/taskboard/taskboard-be/internal/services"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := auth.NewTokenManager(testSecret, 30*time.Minute)
	router := NewRouter(services.NewUserService(db), services.NewTaskService(db), tokens, []string{"*"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func registerAndLogin(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{"username": {email}, "password": {password}}
	loginResp, err := http.PostForm(srv.URL+"/auth/login", form)
	require.NoError(t, err)
	defer loginResp.Body.Close()
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(loginResp.Body).Decode(&body))
	require.Equal(t, "bearer", body.TokenType)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", body["status"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Task Management API", body["message"])
}

// Full lifecycle: register, login, create, defaults, partial update, delete.
func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@x.com", "pw123456")

	resp, task := doJSON(t, http.MethodPost, srv.URL+"/tasks", token, `{"title":"t1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "t1", task["title"])
	require.Equal(t, string(models.StatusNotStarted), task["status"])
	require.Equal(t, string(models.PriorityMedium), task["priority"])
	require.Nil(t, task["description"])
	taskURL := fmt.Sprintf("%s/tasks/%.0f", srv.URL, task["id"].(float64))

	resp, updated := doJSON(t, http.MethodPut, taskURL, token, `{"priority":"high"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "t1", updated["title"])
	require.Equal(t, string(models.PriorityHigh), updated["priority"])

	resp, deleted := doJSON(t, http.MethodDelete, taskURL, token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, deleted["message"], "deleted")

	resp, _ = doJSON(t, http.MethodGet, taskURL, token, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Second delete is a 404, not a silent no-op.
	resp, _ = doJSON(t, http.MethodDelete, taskURL, token, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterDuplicate(t *testing.T) {
	srv := newTestServer(t)

	body := `{"email":"dup@x.com","password":"pw123456"}`
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, errBody := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "email already registered", errBody["error"])
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "",
		`{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "known@x.com", "pw123456")

	// Unknown user and wrong password produce identical responses.
	for _, creds := range []url.Values{
		{"username": {"nobody@x.com"}, "password": {"pw123456"}},
		{"username": {"known@x.com"}, "password": {"wrong-password"}},
	} {
		resp, err := http.PostForm(srv.URL+"/auth/login", creds)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "incorrect email or password", body["error"])
	}
}

func TestTaskOwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)
	ownerToken := registerAndLogin(t, srv, "owner@x.com", "pw123456")
	otherToken := registerAndLogin(t, srv, "other@x.com", "pw123456")

	resp, task := doJSON(t, http.MethodPost, srv.URL+"/tasks", ownerToken, `{"title":"private"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	taskURL := fmt.Sprintf("%s/tasks/%.0f", srv.URL, task["id"].(float64))

	// The other user sees a 404, same as a nonexistent task.
	resp, _ = doJSON(t, http.MethodGet, taskURL, otherToken, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodDelete, taskURL, otherToken, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// And their listing stays empty.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list []models.Task
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Empty(t, list)
}

func TestUnauthenticatedRequests(t *testing.T) {
	srv := newTestServer(t)

	// Missing token.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/tasks", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage token.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/tasks", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Expired token, even for a real user.
	registerAndLogin(t, srv, "a@x.com", "pw123456")
	expired, err := auth.NewTokenManager(testSecret, time.Hour).IssueWithTTL("a@x.com", -1*time.Minute)
	require.NoError(t, err)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/tasks", expired, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "could not validate credentials", body["error"])

	// Valid token for a subject that no longer matches any user.
	ghost, err := auth.NewTokenManager(testSecret, time.Hour).Issue("ghost@x.com")
	require.NoError(t, err)
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/tasks", ghost, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "could not validate credentials", body["error"])
}

func TestCreateTaskValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@x.com", "pw123456")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/tasks", token, `{"title":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/tasks", token, `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/tasks", token,
		`{"title":"t","status":"bogus","priority":"urgent"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, fields, "status")
	require.Contains(t, fields, "priority")
}
