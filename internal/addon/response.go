package addon

import "github.com/teemow/gitmail/internal/card"

// AuthorizationResource is the display name of the account the user is
// asked to connect.
const AuthorizationResource = "GitHub account"

// Navigation is one navigation step in the add-on UI.
type Navigation struct {
	PushCard  *card.Card `json:"pushCard,omitempty"`
	PopToRoot bool       `json:"popToRoot,omitempty"`
}

// ActionResponse lists navigations to apply in order.
type ActionResponse struct {
	Navigations  []Navigation `json:"navigations"`
	StateChanged bool         `json:"stateChanged,omitempty"`
}

// RenderActions wraps the response to a card or universal action.
type RenderActions struct {
	Action ActionResponse `json:"action"`
}

// AuthorizationPrompt asks the host to show the "authorize" card for a
// third-party account.
type AuthorizationPrompt struct {
	AuthorizationURL string `json:"authorization_url"`
	Resource         string `json:"resource"`
}

// Response is the body returned to the add-on runtime. Exactly one field is
// set.
type Response struct {
	Action                   *ActionResponse      `json:"action,omitempty"`
	RenderActions            *RenderActions       `json:"renderActions,omitempty"`
	BasicAuthorizationPrompt *AuthorizationPrompt `json:"basic_authorization_prompt,omitempty"`
}

// TriggerResponse answers a homepage or contextual trigger with cards.
func TriggerResponse(cards []card.Card) *Response {
	return &Response{Action: &ActionResponse{Navigations: push(cards)}}
}

// UniversalResponse answers a universal action (About, Settings).
func UniversalResponse(c card.Card) *Response {
	return &Response{RenderActions: &RenderActions{
		Action: ActionResponse{Navigations: push([]card.Card{c})},
	}}
}

// AuthorizationRequired answers any request whose user has no usable GitHub
// token.
func AuthorizationRequired(authorizationURL string) *Response {
	return &Response{BasicAuthorizationPrompt: &AuthorizationPrompt{
		AuthorizationURL: authorizationURL,
		Resource:         AuthorizationResource,
	}}
}

// Result is the outcome of a card action.
type Result struct {
	Card         *card.Card
	PopToRoot    bool
	StateChanged bool

	// cause is the failure shown on Card, if any. It is only audited.
	cause error
}

// Response encodes r for the add-on runtime.
func (r *Result) Response() *Response {
	var nav Navigation
	if r.PopToRoot {
		nav.PopToRoot = true
	} else {
		nav.PushCard = r.Card
	}
	return &Response{RenderActions: &RenderActions{Action: ActionResponse{
		Navigations:  []Navigation{nav},
		StateChanged: r.StateChanged,
	}}}
}

func push(cards []card.Card) []Navigation {
	navs := make([]Navigation, 0, len(cards))
	for i := range cards {
		navs = append(navs, Navigation{PushCard: &cards[i]})
	}
	return navs
}
