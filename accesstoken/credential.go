// accesstoken/credential.go
package accesstoken

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Credential is the identity and token state of one component/authorizer pair.
// The identity fields never change after construction; AccessToken, ExpiresAt and RefreshToken
// are replaced together on every successful refresh.
type Credential struct {
	ApplicationID     string    `json:"component_appid" validate:"required"`          // ApplicationID identifies the calling component application.
	ApplicationSecret string    `json:"component_appsecret,omitempty"`                // ApplicationSecret is held for callers; the refresh call does not send it.
	AuthorizerID      string    `json:"authorizer_appid" validate:"required"`         // AuthorizerID is the account the token is scoped to.
	AccessToken       string    `json:"authorizer_access_token,omitempty"`            // AccessToken is the current bearer token.
	RefreshToken      string    `json:"authorizer_refresh_token" validate:"required"` // RefreshToken requests a replacement AccessToken.
	ExpiresAt         time.Time `json:"expires_at"`                                   // ExpiresAt is the instant after which AccessToken is invalid.
	ComponentToken    string    `json:"component_access_token" validate:"required"`   // ComponentToken is sent as a query parameter on refresh.
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports missing identity fields. A zero AccessToken or ExpiresAt is allowed and
// simply forces a refresh on first use.
func (c Credential) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return nil
}
