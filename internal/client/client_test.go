package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authload/internal/dummy"
	"authload/internal/stats"
)

func TestToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"present", `{"success":true,"data":{"token":"abc"}}`, "abc", true},
		{"empty", `{"data":{"token":""}}`, "", false},
		{"missing data", `{"success":false,"message":"Unauthorized"}`, "", false},
		{"missing token", `{"data":{"user":{}}}`, "", false},
		{"not a string", `{"data":{"token":42}}`, "", false},
		{"malformed", `{"data":{"token":"abc"`, "", false},
		{"html", `<html>502 Bad Gateway</html>`, "", false},
		{"nothing", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Token([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_AuthFlowRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(dummy.NewAPI(dummy.ServerConfig{}).Handler())
	defer srv.Close()

	m := stats.NewCollector()
	c := New(srv.URL+"/", 5*time.Second, m)
	ctx := context.Background()
	cr := Credentials{Name: "Load User", Email: "x@example.test", Password: "password123"}

	resp, err := c.Register(ctx, cr)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	resp, err = c.Register(ctx, cr)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp, err = c.Login(ctx, cr.Email, cr.Password)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	token, ok := Token(resp.Body)
	require.True(t, ok)

	resp, err = c.ListUsers(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Positive(t, resp.Duration)

	assert.Equal(t, 4, m.Count(stats.HTTPReqs, nil))
	assert.Equal(t, 2, m.Count(stats.HTTPReqDuration, stats.Tags{"name": "register"}))
	assert.InDelta(t, 0.25, m.Rate(stats.HTTPReqFailed, nil), 1e-9)
	assert.Equal(t, 1, m.Count(stats.HTTPReqFailed, stats.Tags{"status": "409"}))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := stats.NewCollector()
	c := New(url, time.Second, m)
	resp, err := c.ListUsers(context.Background(), "t")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, 1.0, m.Rate(stats.HTTPReqFailed, stats.Tags{"status": "0"}))
}
