package view

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/nomis52/rollcall/roster"
)

const (
	// RemoveControlClass marks a participant removal control.
	RemoveControlClass = "participant-remove"

	attrActivity = "data-activity"
	attrEmail    = "data-email"

	loadFailureText = "Failed to load activities. Please try again later."
	noParticipants  = "No participants yet"
)

// Render rebuilds the roster container and the selection control from r.
// Previous content is discarded; rendering the same roster twice yields the
// same document.
func (p *Page) Render(r roster.Roster) {
	p.mu.Lock()
	defer p.mu.Unlock()

	removeChildren(p.list)
	removeChildren(p.sel)
	p.sel.AppendChild(placeholderOption())

	r.Each(func(name string, a roster.Activity) {
		p.list.AppendChild(activityCard(name, a))
		p.sel.AppendChild(appendChildren(element("option", "value", name), text(name)))
	})
}

// RenderLoadFailure replaces the roster container with a failure message.
// The selection control keeps its current entries.
func (p *Page) RenderLoadFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	removeChildren(p.list)
	p.list.AppendChild(appendChildren(element("p", "class", "load-error"), text(loadFailureText)))
}

func activityCard(name string, a roster.Activity) *html.Node {
	return appendChildren(element("div", "class", "activity-card"),
		appendChildren(element("h4"), text(name)),
		appendChildren(element("p"), text(a.Description)),
		labelled("Schedule:", a.Schedule),
		labelled("Availability:", fmt.Sprintf("%d spots left", a.SpotsLeft())),
		appendChildren(element("div", "class", "participants"),
			appendChildren(element("p"),
				appendChildren(element("strong"), text("Participants:")),
			),
			participantList(name, a.Participants),
		),
	)
}

func labelled(label, value string) *html.Node {
	return appendChildren(element("p"),
		appendChildren(element("strong"), text(label)),
		text(" "+value),
	)
}

func participantList(activity string, participants []string) *html.Node {
	ul := element("ul", "class", "participants-list")
	if len(participants) == 0 {
		ul.AppendChild(appendChildren(element("li", "class", "participants-empty"), text(noParticipants)))
		return ul
	}
	for _, email := range participants {
		ul.AppendChild(appendChildren(element("li", "class", "participant-item"),
			appendChildren(element("span", "class", "participant-email"), text(email)),
			removeControl(activity, email),
		))
	}
	return ul
}

// removeControl builds the removal button for one participant. The
// activity and email are embedded encoded so the pair can be recovered
// exactly from the button alone.
func removeControl(activity, email string) *html.Node {
	encActivity := roster.EncodeComponent(activity)
	encEmail := roster.EncodeComponent(email)
	return appendChildren(element("button",
		"type", "submit",
		"class", RemoveControlClass,
		"name", ControlField,
		"value", encActivity+controlSeparator+encEmail,
		attrActivity, encActivity,
		attrEmail, encEmail,
		"aria-label", fmt.Sprintf("Remove %s from %s", email, activity),
		"title", "Remove participant",
	), text("×"))
}
