package card

// Card is one screen of the add-on UI.
type Card struct {
	Header   *Header   `json:"header,omitempty"`
	Sections []Section `json:"sections"`
}

// Header is the card title area.
type Header struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ImageAltText string `json:"imageAltText,omitempty"`
}

// Section groups widgets. A collapsible section shows only its first
// UncollapsibleWidgetsCount widgets until expanded.
type Section struct {
	Header                    string   `json:"header,omitempty"`
	Collapsible               bool     `json:"collapsible,omitempty"`
	UncollapsibleWidgetsCount int      `json:"uncollapsibleWidgetsCount,omitempty"`
	Widgets                   []Widget `json:"widgets"`
}

// Widget holds exactly one of its fields.
type Widget struct {
	DecoratedText *DecoratedText `json:"decoratedText,omitempty"`
	TextParagraph *TextParagraph `json:"textParagraph,omitempty"`
	ButtonList    *ButtonList    `json:"buttonList,omitempty"`
	TextInput     *TextInput     `json:"textInput,omitempty"`
	Image         *Image         `json:"image,omitempty"`
}

// DecoratedText is a key-value line with an optional leading icon.
type DecoratedText struct {
	Text      string `json:"text"`
	WrapText  bool   `json:"wrapText,omitempty"`
	StartIcon *Icon  `json:"startIcon,omitempty"`
}

// Icon is an image shown next to text.
type Icon struct {
	IconURL string `json:"iconUrl"`
	AltText string `json:"altText,omitempty"`
}

// TextParagraph is formatted text (a small HTML subset).
type TextParagraph struct {
	Text string `json:"text"`
}

// ButtonList is a row of buttons.
type ButtonList struct {
	Buttons []Button `json:"buttons"`
}

// Button is a text button that either opens a link or runs an action.
type Button struct {
	Text    string  `json:"text"`
	OnClick OnClick `json:"onClick"`
}

// OnClick holds exactly one of OpenLink or Action.
type OnClick struct {
	OpenLink *OpenLink `json:"openLink,omitempty"`
	Action   *Action   `json:"action,omitempty"`
}

// OpenLink opens URL in a new tab.
type OpenLink struct {
	URL string `json:"url"`
}

// Action calls back into the add-on. Function is the endpoint URL (or the
// bare function ID when no endpoint base is configured).
type Action struct {
	Function   string            `json:"function"`
	Parameters []ActionParameter `json:"parameters,omitempty"`
}

// ActionParameter is one key/value pair passed back with an action.
type ActionParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Param returns the value of key, or "".
func (a *Action) Param(key string) string {
	for _, p := range a.Parameters {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// TextInputType selects single or multiple line input.
type TextInputType string

const (
	SingleLine   TextInputType = "SINGLE_LINE"
	MultipleLine TextInputType = "MULTIPLE_LINE"
)

// TextInput is a form field; its value comes back in the action's form
// inputs under Name.
type TextInput struct {
	Name  string        `json:"name"`
	Label string        `json:"label"`
	Type  TextInputType `json:"type,omitempty"`
}

// Image is a standalone image widget.
type Image struct {
	ImageURL string `json:"imageUrl"`
	AltText  string `json:"altText,omitempty"`
}

func paragraph(text string) Widget {
	return Widget{TextParagraph: &TextParagraph{Text: text}}
}

func buttons(b ...Button) Widget {
	return Widget{ButtonList: &ButtonList{Buttons: b}}
}

func linkButton(text, url string) Button {
	return Button{Text: text, OnClick: OnClick{OpenLink: &OpenLink{URL: url}}}
}

func actionButton(text string, action Action) Button {
	return Button{Text: text, OnClick: OnClick{Action: &action}}
}
