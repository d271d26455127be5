package addon

import (
	"encoding/json"
	"fmt"
	"io"
)

// maxEventBytes bounds the event object read from a request body.
const maxEventBytes = 1 << 20

// Event is the event object the add-on runtime sends with every trigger
// and card action.
type Event struct {
	Common        CommonEventObject        `json:"commonEventObject"`
	Authorization AuthorizationEventObject `json:"authorizationEventObject"`
	Gmail         *GmailEventObject        `json:"gmail,omitempty"`
}

// CommonEventObject holds the host-independent part of an event.
type CommonEventObject struct {
	HostApp    string               `json:"hostApp,omitempty"`
	Platform   string               `json:"platform,omitempty"`
	Parameters map[string]string    `json:"parameters,omitempty"`
	FormInputs map[string]FormInput `json:"formInputs,omitempty"`
}

// FormInput is the value of one widget in the card the action came from.
type FormInput struct {
	StringInputs *StringInputs `json:"stringInputs,omitempty"`
}

// StringInputs holds the values of a text input.
type StringInputs struct {
	Value []string `json:"value"`
}

// AuthorizationEventObject carries the tokens minted by the add-on runtime.
type AuthorizationEventObject struct {
	UserOAuthToken string `json:"userOAuthToken,omitempty"`
	UserIDToken    string `json:"userIdToken,omitempty"`
	SystemIDToken  string `json:"systemIdToken,omitempty"`
}

// GmailEventObject identifies the open message. AccessToken only grants
// access to that message.
type GmailEventObject struct {
	MessageID   string `json:"messageId"`
	ThreadID    string `json:"threadId,omitempty"`
	AccessToken string `json:"accessToken"`
}

// DecodeEvent reads one event object from r.
func DecodeEvent(r io.Reader) (*Event, error) {
	var ev Event
	dec := json.NewDecoder(io.LimitReader(r, maxEventBytes))
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode add-on event: %w", err)
	}
	return &ev, nil
}

// ActionRequest is one invoked card action.
type ActionRequest struct {
	// FunctionID is the action's function, either the bare ID or the
	// endpoint URL it was rendered with.
	FunctionID string

	Parameters map[string]string
	FormInputs map[string]string

	// User is the verified Google account subject of the caller.
	User string
}

// ActionRequest flattens the event into the request for function. Only the
// first value of each text input is kept.
func (e *Event) ActionRequest(function, user string) ActionRequest {
	req := ActionRequest{
		FunctionID: function,
		Parameters: make(map[string]string, len(e.Common.Parameters)),
		FormInputs: make(map[string]string, len(e.Common.FormInputs)),
		User:       user,
	}
	for k, v := range e.Common.Parameters {
		req.Parameters[k] = v
	}
	for k, in := range e.Common.FormInputs {
		if in.StringInputs != nil && len(in.StringInputs.Value) > 0 {
			req.FormInputs[k] = in.StringInputs.Value[0]
		}
	}
	return req
}
