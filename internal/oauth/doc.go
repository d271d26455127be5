// Package oauth links a Google account using the add-on to a GitHub account.
//
// The add-on is an OAuth client of GitHub: Service builds the authorization
// URL shown in the add-on's authorization prompt, exchanges the code GitHub
// sends to the callback endpoint, and keeps the resulting token per Google
// user in a TokenStore (in memory or in Valkey, optionally encrypted with
// AES-256-GCM). The state parameter is a short-lived signed JWT naming the
// Google user, so the callback needs no server-side session.
package oauth
