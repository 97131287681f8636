// httpclient/request_test.go
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/deploymenttheory/go-api-authorizer-token/mocklogger"
	"github.com/deploymenttheory/go-api-authorizer-token/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	var (
		gotMethod  string
		gotQuery   url.Values
		gotHeaders http.Header
		gotBody    map[string]string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query()
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"authorizer_access_token":"T1","expires_in":7200}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), ClientConfig{HideSensitiveData: true}, mocklogger.NewPermissiveMockLogger())

	var out struct {
		Token     string `json:"authorizer_access_token"`
		ExpiresIn int    `json:"expires_in"`
	}
	err := client.PostJSON(context.Background(), server.URL+"/cgi-bin/component/api_authorizer_token?lang=zh_CN",
		url.Values{"component_access_token": {"component-secret"}},
		map[string]string{"component_appid": "wx-component"},
		&out,
	)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "component-secret", gotQuery.Get("component_access_token"))
	assert.Equal(t, "zh_CN", gotQuery.Get("lang"))
	assert.Equal(t, "wx-component", gotBody["component_appid"])
	assert.Contains(t, gotHeaders.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, gotHeaders.Get("X-Request-Id"))
	assert.Contains(t, gotHeaders.Get("User-Agent"), "go-api-authorizer-token/")
	assert.Equal(t, "T1", out.Token)
	assert.Equal(t, 7200, out.ExpiresIn)
}

func TestClient_RedactsLoggedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	mockLogger := mocklogger.NewMockLogger()
	mockLogger.On("LogRequestStart", "request_start", mock.Anything, http.MethodGet,
		mock.MatchedBy(func(u string) bool { return !containsSecret(u) }), mock.Anything).Once()
	mockLogger.On("LogRequestEnd", "request_end", mock.Anything, http.MethodGet,
		mock.MatchedBy(func(u string) bool { return !containsSecret(u) }), http.StatusOK, mock.Anything).Once()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Maybe()

	client := NewClient(server.Client(), ClientConfig{HideSensitiveData: true}, mockLogger)

	err := client.Get(context.Background(), server.URL, url.Values{"access_token": {"s3cr3t"}}, nil)

	require.NoError(t, err)
	mockLogger.AssertExpectations(t)
}

func containsSecret(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return true
	}
	return parsed.Query().Get("access_token") == "s3cr3t"
}

func TestClient_NonSuccessStatusReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errcode":40001,"errmsg":"invalid credential"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), ClientConfig{}, mocklogger.NewPermissiveMockLogger())

	err := client.PostJSON(context.Background(), server.URL, nil, map[string]string{}, nil)

	var apiErr *response.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 40001, apiErr.ErrCode)
	assert.Equal(t, "invalid credential", apiErr.Message)
}

func TestClient_TransportErrorIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(&http.Client{}, ClientConfig{}, mocklogger.NewPermissiveMockLogger())

	err := client.Get(context.Background(), server.URL, nil, nil)

	require.Error(t, err)
	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr), "transport error must stay reachable through errors.As")
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.Client(), ClientConfig{}, mocklogger.NewPermissiveMockLogger())
	err := client.Get(ctx, server.URL, nil, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		query    url.Values
		want     string
		wantErr  bool
	}{
		{"no query", "https://api.example.com/token", nil, "https://api.example.com/token", false},
		{"merged query", "https://api.example.com/token?a=1", url.Values{"b": {"2"}}, "https://api.example.com/token?a=1&b=2", false},
		{"relative endpoint", "/token", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildURL(tt.endpoint, tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
