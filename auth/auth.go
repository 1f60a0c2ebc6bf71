// Package auth obtains OAuth2 client-credentials tokens for services that
// accept a bearer token, such as brokers using JWT passwords.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the client-credentials grant settings.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Validate checks that the grant can be attempted.
func (c Conf) Validate() error {
	if c.ClientID == "" || c.TokenURL == "" {
		return fmt.Errorf("oauth2 requires client_id and token_url")
	}
	return nil
}

// ClientCred caches a token and refreshes it once expired.
type ClientCred struct {
	src oauth2.TokenSource
}

func NewClientCred(conf Conf) *ClientCred {
	cc := clientcredentials.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURL:     conf.TokenURL,
		Scopes:       conf.Scopes,
	}
	return &ClientCred{src: cc.TokenSource(context.Background())}
}

// GetToken returns a valid access token, requesting a new one when needed.
func (c *ClientCred) GetToken() (string, error) {
	tok, err := c.src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return tok.AccessToken, nil
}
