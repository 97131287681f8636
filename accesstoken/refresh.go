// accesstoken/refresh.go
package accesstoken

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const refreshGroupKey = "authorizer_token"

// refreshRequest is the JSON body of the refresh call.
type refreshRequest struct {
	ComponentAppID         string `json:"component_appid"`
	AuthorizerAppID        string `json:"authorizer_appid"`
	AuthorizerRefreshToken string `json:"authorizer_refresh_token"`
}

// RefreshResponse is the decoded answer of the refresh endpoint.
type RefreshResponse struct {
	AuthorizerAccessToken  string          `json:"authorizer_access_token"`
	ExpiresIn              Seconds         `json:"expires_in"`
	AuthorizerRefreshToken string          `json:"authorizer_refresh_token"`
	ErrCode                int             `json:"errcode"`
	ErrMsg                 string          `json:"errmsg"`
	Raw                    json.RawMessage `json:"-"`
}

// Lifetime is ExpiresIn as a duration, falling back to DefaultTokenLifetime when the server
// did not report a positive value or reported one too large for a time.Duration.
func (r *RefreshResponse) Lifetime() time.Duration {
	if r.ExpiresIn <= 0 || r.ExpiresIn > maxSeconds {
		return DefaultTokenLifetime
	}
	return r.ExpiresIn.Duration()
}

// Seconds is a count of seconds that decodes from a JSON number or a numeric JSON string.
// Strings that are not numbers decode to zero.
type Seconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" {
		*s = 0
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = Seconds(n)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*s = Seconds(f)
		return nil
	}
	*s = 0
	return nil
}

const maxSeconds = Seconds(math.MaxInt64 / int64(time.Second))

// Duration converts s to a time.Duration, saturating at the largest representable value.
func (s Seconds) Duration() time.Duration {
	switch {
	case s > maxSeconds:
		return time.Duration(math.MaxInt64)
	case s < -maxSeconds:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(s) * time.Second
}

// RefreshFromServer requests a new authorizer access token, stores it in the held Credential
// and, when a cache is configured, saves it with a TTL of the lifetime minus the safety margin.
//
// Concurrent calls share one request; the context of the call that started it governs it.
// A response without authorizer_access_token yields a *RefreshError. Transport and HTTP status
// errors from the HTTPClient are returned unchanged.
func (tm *TokenManager) RefreshFromServer(ctx context.Context) (*RefreshResponse, error) {
	v, err, shared := tm.refreshGroup.Do(refreshGroupKey, func() (any, error) {
		return tm.refreshFromServer(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		tm.log.Debug("Joined in-flight authorizer token refresh")
	}
	return v.(*RefreshResponse), nil
}

func (tm *TokenManager) refreshFromServer(ctx context.Context) (*RefreshResponse, error) {
	client := tm.HTTPClient()
	if client == nil {
		return nil, ErrNoHTTPClient
	}

	tm.mu.RLock()
	body := refreshRequest{
		ComponentAppID:         tm.cred.ApplicationID,
		AuthorizerAppID:        tm.cred.AuthorizerID,
		AuthorizerRefreshToken: tm.cred.RefreshToken,
	}
	query := url.Values{"component_access_token": {tm.cred.ComponentToken}}
	endpoint := tm.endpoint
	tm.mu.RUnlock()

	tm.log.Debug("Refreshing authorizer access token", zap.String("endpoint", endpoint))

	var raw json.RawMessage
	if err := client.PostJSON(ctx, endpoint, query, body, &raw); err != nil {
		tm.log.Warn("Authorizer token refresh request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}

	resp, err := decodeRefreshResponse(raw)
	if err != nil {
		tm.log.Warn("Authorizer token refresh returned no token",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, err
	}

	lifetime := resp.Lifetime()

	tm.mu.Lock()
	expiresAt := tm.now().Add(lifetime)
	tm.cred.AccessToken = resp.AuthorizerAccessToken
	tm.cred.ExpiresAt = expiresAt
	if resp.AuthorizerRefreshToken != "" {
		tm.cred.RefreshToken = resp.AuthorizerRefreshToken
	}
	tm.mu.Unlock()

	tm.saveCached(ctx, resp.AuthorizerAccessToken, lifetime)
	tm.log.LogTokenRefresh("authorizer_token_refreshed", body.AuthorizerAppID, expiresAt, lifetime)

	return resp, nil
}

// saveCached writes token to the cache. Failures are logged; the refreshed token is still usable.
func (tm *TokenManager) saveCached(ctx context.Context, token string, lifetime time.Duration) {
	c := tm.Cache()
	if c == nil {
		return
	}

	key := tm.CacheKey()
	ttl := lifetime - tm.safetyMargin
	if ttl <= 0 {
		tm.log.Debug("Token lifetime shorter than safety margin, not caching",
			zap.Duration("lifetime", lifetime),
			zap.Duration("safety_margin", tm.safetyMargin),
		)
		return
	}

	if err := c.Save(ctx, key, token, ttl); err != nil {
		tm.log.Warn("Failed to cache authorizer access token", zap.String("key", key), zap.Error(err))
	}
}

// decodeRefreshResponse decodes raw and checks that it carries a token.
func decodeRefreshResponse(raw json.RawMessage) (*RefreshResponse, error) {
	serialized := compactJSON(raw)

	var resp RefreshResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RefreshError{Response: serialized, Err: err}
	}
	if resp.AuthorizerAccessToken == "" {
		return nil, &RefreshError{Response: serialized, ErrCode: resp.ErrCode, ErrMsg: resp.ErrMsg}
	}

	resp.Raw = append(json.RawMessage(nil), raw...)
	return &resp, nil
}

func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(bytes.TrimSpace(raw))
	}
	return buf.String()
}
