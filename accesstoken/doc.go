// Package accesstoken manages the authorizer access token used by a third-party platform
// ("component") to call the WeChat API on behalf of an authorizer account.
//
// A TokenManager holds one Credential. GetToken returns the held token while it is unexpired
// and otherwise refreshes it from the component token endpoint:
//
//	POST {endpoint}?component_access_token={ComponentToken}
//	{"component_appid": ..., "authorizer_appid": ..., "authorizer_refresh_token": ...}
//
// A successful refresh replaces the held token, its expiry and, when the server rotates it,
// the refresh token. An optional cache.Cache shares tokens between processes; entries are saved
// with a TTL of expires_in minus a safety margin. Concurrent refreshes on one manager are
// collapsed into a single request.
//
// # Quick Start
//
//	client, _ := httpclient.BuildClient(httpclient.ClientConfig{HideSensitiveData: true}, log)
//	tm, err := accesstoken.NewTokenManager(accesstoken.Credential{
//	    ApplicationID:  "wx-component-appid",
//	    AuthorizerID:   "wx-authorizer-appid",
//	    RefreshToken:   "refreshtoken@@@...",
//	    ComponentToken: componentAccessToken,
//	}, client, accesstoken.WithCache(cache.NewMemory()), accesstoken.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//
//	token, err := tm.GetToken(ctx, false)
//
//	api := &http.Client{Transport: accesstoken.NewTransport(tm, nil)}
package accesstoken
