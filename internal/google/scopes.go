package google

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// Scopes are requested by the CLI login. Reading a message is all gitmail
// does with Gmail.
var Scopes = []string{gmail.GmailReadonlyScope}

// OAuthConfig returns the CLI's Google OAuth client configuration.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}
