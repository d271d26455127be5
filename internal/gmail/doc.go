// Package gmail reads the message open in the add-on.
//
// The add-on runtime hands each request a per-message access token
// (gmail.accessToken) next to the user's OAuth token. Both are needed: the
// OAuth token authorizes the call and the X-Goog-Gmail-Access-Token header
// scopes it to the open message. The CLI uses a cached OAuth token instead.
package gmail
