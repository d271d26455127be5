package github

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// maxCapturedBody bounds how much of an error response is kept.
const maxCapturedBody = 64 << 10

type capturedBodyKey struct{}

// capturedBody holds the raw body of the last non-2xx response sent for a
// context. go-gh reduces error bodies to a message, so the raw bytes are
// taken before it reads them.
type capturedBody struct {
	mu   sync.Mutex
	data []byte
}

func (c *capturedBody) set(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
}

func (c *capturedBody) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.data)
}

// withBodyCapture returns a context under which captureTransport records
// error bodies into the returned holder.
func withBodyCapture(ctx context.Context) (context.Context, *capturedBody) {
	holder := &capturedBody{}
	return context.WithValue(ctx, capturedBodyKey{}, holder), holder
}

// captureTransport copies the body of non-2xx responses into the
// capturedBody found on the request context. The response body is left
// readable in full for the caller.
type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 300 || resp.Body == nil {
		return resp, err
	}
	holder, ok := req.Context().Value(capturedBodyKey{}).(*capturedBody)
	if !ok {
		return resp, nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	holder.set(data)

	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), rest), rest}
	return resp, nil
}
