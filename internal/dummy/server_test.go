package dummy

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, url string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAPI_RegisterLoginList(t *testing.T) {
	api := NewAPI(ServerConfig{})
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	creds := map[string]string{"name": "Load User", "email": "A@example.test", "password": "password123"}

	resp, _ := post(t, srv.URL+"/register", creds, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := post(t, srv.URL+"/register", creds, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = post(t, srv.URL+"/login", map[string]string{"email": "a@example.test", "password": "wrong1"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = post(t, srv.URL+"/login", map[string]string{"email": "a@example.test", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/users", map[string]string{"name": "k6 user", "email": "b@example.test", "password": "password123"}, token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, api.UserCount())
}

func TestAPI_Validation(t *testing.T) {
	srv := httptest.NewServer(NewAPI(ServerConfig{}).Handler())
	defer srv.Close()

	resp, _ := post(t, srv.URL+"/register", map[string]string{"name": "x", "email": "nope", "password": "password123"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_FailRate(t *testing.T) {
	srv := httptest.NewServer(NewAPI(ServerConfig{FailRate: 1}).Handler())
	defer srv.Close()

	resp, _ := post(t, srv.URL+"/login", map[string]string{"email": "a@example.test", "password": "password123"}, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
