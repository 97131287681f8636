// redirecthandler/redirecthandler_test.go
package redirecthandler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/deploymenttheory/go-api-authorizer-token/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &http.Request{Method: http.MethodPost, URL: u, Header: http.Header{}}
}

func TestRedirectHandler_CheckRedirect(t *testing.T) {
	tests := []struct {
		name       string
		via        []string
		next       string
		maxHops    int
		wantErr    any
		wantHeader bool
	}{
		{
			name:       "same host",
			via:        []string{"https://api.weixin.qq.com/cgi-bin/component/api_authorizer_token?component_access_token=c"},
			next:       "https://api.weixin.qq.com/v2/api_authorizer_token?component_access_token=c",
			maxHops:    5,
			wantHeader: true,
		},
		{
			name:    "maximum redirects reached",
			via:     []string{"https://a.example/1", "https://a.example/2"},
			next:    "https://a.example/3",
			maxHops: 2,
			wantErr: &MaxRedirectsError{},
		},
		{
			name:    "loop",
			via:     []string{"https://a.example/1", "https://a.example/2"},
			next:    "https://a.example/1",
			maxHops: 5,
			wantErr: &RedirectLoopError{},
		},
		{
			name:    "cross host with token",
			via:     []string{"https://api.weixin.qq.com/token?component_access_token=c"},
			next:    "https://evil.example/token?component_access_token=c",
			maxHops: 5,
			wantErr: &CrossHostRedirectError{},
		},
		{
			name:       "cross host without token strips headers",
			via:        []string{"https://api.weixin.qq.com/token"},
			next:       "https://sh.api.weixin.qq.com/token",
			maxHops:    5,
			wantHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRedirectHandler(mocklogger.NewPermissiveMockLogger(), tt.maxHops)

			via := make([]*http.Request, 0, len(tt.via))
			for _, v := range tt.via {
				via = append(via, mustRequest(t, v))
			}
			req := mustRequest(t, tt.next)
			req.Header.Set("Authorization", "Bearer x")

			err := h.checkRedirect(req, via)

			switch want := tt.wantErr.(type) {
			case *MaxRedirectsError:
				assert.ErrorAs(t, err, &want)
			case *RedirectLoopError:
				assert.ErrorAs(t, err, &want)
			case *CrossHostRedirectError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, "evil.example", want.To)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantHeader, req.Header.Get("Authorization") != "")
			}
		})
	}
}

func TestRedirectHandler_LogsRedactedURLs(t *testing.T) {
	var fields []zap.Field
	log := mocklogger.NewMockLogger()
	log.On("Info", "Redirecting request", mock.Anything).Run(func(args mock.Arguments) {
		fields = args.Get(1).([]zap.Field)
	}).Once()
	h := NewRedirectHandler(log, 5)

	req := mustRequest(t, "https://api.weixin.qq.com/b?component_access_token=secret")
	via := []*http.Request{mustRequest(t, "https://api.weixin.qq.com/a?component_access_token=secret")}

	require.NoError(t, h.checkRedirect(req, via))
	log.AssertExpectations(t)

	require.Len(t, fields, 3)
	assert.Equal(t, "https://api.weixin.qq.com/a?component_access_token=REDACTED", fields[0].String)
	assert.Equal(t, "https://api.weixin.qq.com/b?component_access_token=REDACTED", fields[1].String)
}

func TestSetupRedirectHandler(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, target.URL+"/end", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	t.Run("disabled returns the redirect response", func(t *testing.T) {
		client := target.Client()
		require.NoError(t, SetupRedirectHandler(client, false, 0, true, nil))

		resp, err := client.Get(target.URL + "/start")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})

	t.Run("enabled follows", func(t *testing.T) {
		client := target.Client()
		require.NoError(t, SetupRedirectHandler(client, true, 3, true, mocklogger.NewPermissiveMockLogger()))

		resp, err := client.Get(target.URL + "/start")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid max redirects", func(t *testing.T) {
		err := SetupRedirectHandler(&http.Client{}, true, 0, true, mocklogger.NewPermissiveMockLogger())
		assert.Error(t, err)
	})
}
