package auth

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
)

// StateCookieName holds the OAuth state between redirect and callback.
const StateCookieName = "athena_oauth_state"

// GoogleCalendarProvider drives the authorization code flow that connects a
// Google calendar. Offline access is requested so the callback receives a
// refresh token for background sync.
type GoogleCalendarProvider struct {
	config *oauth2.Config
}

func NewGoogleCalendarProvider(config *oauth2.Config) *GoogleCalendarProvider {
	return &GoogleCalendarProvider{config: config}
}

// NewState returns an unguessable value for the state parameter. The caller
// stores it in a cookie and compares it on callback (CSRF protection).
func NewState() string {
	return "xid:" + xid.New().String()
}

// AuthURL is the Google consent page. prompt=consent makes Google return a
// refresh token even when the user granted access before.
func (p *GoogleCalendarProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the callback code for tokens.
func (p *GoogleCalendarProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	return tok, nil
}
