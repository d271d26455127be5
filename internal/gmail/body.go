package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	gmail "google.golang.org/api/gmail/v1"
)

const (
	mimeText = "text/plain"
	mimeHTML = "text/html"
)

// Text extracts the body of msg, preferring text/plain over text/html.
// Bodies of all parts with the chosen type are joined with newlines; a
// message with neither falls back to its snippet. HTML bodies are reduced
// to their text and link targets.
func Text(msg *gmail.Message) (string, error) {
	for _, mimeType := range []string{mimeText, mimeHTML} {
		var bodies []string
		var decodeErr error
		walkParts(msg.Payload, func(part *gmail.MessagePart) {
			if part.MimeType != mimeType || part.Body == nil || part.Body.Data == "" || part.Filename != "" {
				return
			}
			body, err := decodeBody(part.Body.Data)
			if err == nil && mimeType == mimeHTML {
				body, err = htmlText(body)
			}
			if err != nil {
				decodeErr = err
				return
			}
			bodies = append(bodies, body)
		})
		if decodeErr != nil {
			return "", decodeErr
		}
		if len(bodies) > 0 {
			return strings.Join(bodies, "\n"), nil
		}
	}
	return msg.Snippet, nil
}

// decodeBody decodes base64url body data, padded or not.
func decodeBody(data string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded), nil
		}
	}
	return "", fmt.Errorf("failed to decode message body")
}

// htmlText flattens an HTML document into whitespace separated text nodes
// and href values. Script and style contents are dropped.
func htmlText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML body: %w", err)
	}

	var words []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					words = append(words, attr.Val)
				}
			}
		case html.TextNode:
			words = append(words, strings.Fields(n.Data)...)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(root)
	return strings.Join(words, " "), nil
}

// walkParts visits part and all nested parts depth first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, child := range part.Parts {
		walkParts(child, fn)
	}
}
