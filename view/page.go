// Package view owns the rendered roster document.
//
// A Page is an in-memory HTML document built from golang.org/x/net/html
// nodes. Untrusted strings (activity names, participant identifiers,
// descriptions) only ever become text nodes or attribute values, and the
// document is serialized with html.Render, which escapes both.
//
// The Page is the single owner of the view state. The controller renders
// rosters into it, the notification channel writes the message slot, and
// the UI server serializes it.
package view

import (
	"io"
	"sync"

	"golang.org/x/net/html"

	"github.com/nomis52/rollcall/notify"
)

const (
	// ListID is the id of the roster container.
	ListID = "activities-list"
	// SelectID is the id of the activity selection control.
	SelectID = "activity"
	// EmailID is the id of the signup email input.
	EmailID = "email"
	// FormID is the id of the signup form.
	FormID = "signup-form"
	// MessageID is the id of the notification slot.
	MessageID = "message"

	// SignupAction is where the signup form posts.
	SignupAction = "/signup"
	// ClickAction is where activated roster controls post.
	ClickAction = "/roster/click"

	loadingText     = "Loading activities..."
	placeholderText = "-- Select an activity --"
)

// Page is the roster document. All methods are safe for concurrent use.
type Page struct {
	mu sync.Mutex

	doc     *html.Node
	list    *html.Node
	sel     *html.Node
	email   *html.Node
	message *html.Node
}

// Option is an entry of the selection control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// NewPage builds the initial document: a loading roster, an empty
// selection control and a hidden message slot.
func NewPage(title string) *Page {
	p := &Page{}

	p.list = appendChildren(element("div", "id", ListID),
		appendChildren(element("p"), text(loadingText)),
	)
	p.sel = appendChildren(element("select", "id", SelectID, "name", "activity", "required", ""),
		placeholderOption(),
	)
	p.email = element("input",
		"type", "email",
		"id", EmailID,
		"name", "email",
		"required", "",
		"placeholder", "your-email@example.com",
		"value", "",
	)
	p.message = element("div", "id", MessageID, "class", "message hidden")

	rosterSection := appendChildren(element("section", "id", "activities-container"),
		appendChildren(element("h3"), text("Available Activities")),
		appendChildren(element("form", "method", "post", "action", ClickAction),
			p.list,
		),
	)

	signupForm := appendChildren(element("form", "id", FormID, "method", "post", "action", SignupAction),
		appendChildren(element("label", "for", EmailID), text("Email:")),
		p.email,
		appendChildren(element("label", "for", SelectID), text("Activity:")),
		p.sel,
		appendChildren(element("button", "type", "submit"), text("Sign Up")),
	)

	signupSection := appendChildren(element("section", "id", "signup-container"),
		appendChildren(element("h3"), text("Sign Up for an Activity")),
		signupForm,
		p.message,
	)

	head := appendChildren(element("head"),
		element("meta", "charset", "utf-8"),
		appendChildren(element("title"), text(title)),
	)
	body := appendChildren(element("body"),
		appendChildren(element("header"),
			appendChildren(element("h1"), text(title)),
		),
		appendChildren(element("main"), rosterSection, signupSection),
	)

	p.doc = appendChildren(&html.Node{Type: html.DocumentNode},
		&html.Node{Type: html.DoctypeNode, Data: "html"},
		appendChildren(element("html", "lang", "en"), head, body),
	)
	return p
}

func placeholderOption() *html.Node {
	return appendChildren(element("option", "value", ""), text(placeholderText))
}

// WriteHTML serializes the whole document to w.
func (p *Page) WriteHTML(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.doc)
}

// ListText returns the visible text of the roster container, one line per
// block.
func (p *Page) ListText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return InnerText(p.list)
}

// ListTextContent returns the raw text content of the roster container.
func (p *Page) ListTextContent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return TextContent(p.list)
}

// RemovalControls returns the removal controls currently in the roster, in
// document order. The nodes belong to the page and must not be modified.
func (p *Page) RemovalControls() []*html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	var controls []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if hasClass(n, RemoveControlClass) {
			controls = append(controls, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.list)
	return controls
}

// SelectOptions returns the entries of the selection control in order.
func (p *Page) SelectOptions() []Option {
	p.mu.Lock()
	defer p.mu.Unlock()

	var opts []Option
	for c := p.sel.FirstChild; c != nil; c = c.NextSibling {
		value, _ := getAttr(c, "value")
		_, selected := getAttr(c, "selected")
		opts = append(opts, Option{Value: value, Label: TextContent(c), Selected: selected})
	}
	return opts
}

// FormValues returns the selected activity and the entered email.
func (p *Page) FormValues() (activity, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := p.sel.FirstChild; c != nil; c = c.NextSibling {
		if _, ok := getAttr(c, "selected"); ok {
			activity, _ = getAttr(c, "value")
			break
		}
	}
	email, _ = getAttr(p.email, "value")
	return activity, email
}

// SetFormValues fills the signup form. An activity with no matching option
// leaves the placeholder selected.
func (p *Page) SetFormValues(activity, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := p.sel.FirstChild; c != nil; c = c.NextSibling {
		removeAttr(c, "selected")
	}
	for c := p.sel.FirstChild; c != nil; c = c.NextSibling {
		if v, _ := getAttr(c, "value"); v == activity && activity != "" {
			setAttr(c, "selected", "")
			break
		}
	}
	setAttr(p.email, "value", email)
}

// ResetForm clears the signup form.
func (p *Page) ResetForm() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := p.sel.FirstChild; c != nil; c = c.NextSibling {
		removeAttr(c, "selected")
	}
	setAttr(p.email, "value", "")
}

// Show implements notify.Display.
func (p *Page) Show(n notify.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	replaceText(p.message, n.Text)
	setAttr(p.message, "class", "message "+n.Kind.String())
}

// Hide implements notify.Display.
func (p *Page) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()

	replaceText(p.message, "")
	setAttr(p.message, "class", "message hidden")
}

// Message returns the text and class of the message slot.
func (p *Page) Message() (text, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	class, _ = getAttr(p.message, "class")
	return TextContent(p.message), class
}
