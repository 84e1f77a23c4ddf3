package view

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/nomis52/rollcall/roster"
)

const (
	// ControlField is the form field an activated removal control posts.
	ControlField = "control"

	// controlSeparator never appears in an encoded component.
	controlSeparator = ":"
)

// ErrInvalidControl is returned when a control value cannot be parsed.
var ErrInvalidControl = errors.New("invalid control value")

// FormData is a signup form submission.
type FormData struct {
	Activity string
	Email    string
}

// Event is a user event routed to the controller.
type Event struct {
	// Target is the node the event was dispatched on.
	Target *html.Node

	// Form carries the values of a form submitted from outside the page,
	// such as an HTTP post. When nil the page's own form is read.
	Form *FormData

	defaultPrevented bool
}

// PreventDefault suppresses the browser's default action for the event.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Removal identifies the participant a removal control targets.
type Removal struct {
	Activity string
	Email    string
}

// RemovalTarget finds the removal control containing n and decodes the
// activity and participant it carries. ok is false when n is not inside a
// removal control.
func RemovalTarget(n *html.Node) (Removal, bool, error) {
	control := closest(n, func(n *html.Node) bool {
		return hasClass(n, RemoveControlClass)
	})
	if control == nil {
		return Removal{}, false, nil
	}

	rawActivity, _ := getAttr(control, attrActivity)
	rawEmail, _ := getAttr(control, attrEmail)

	activity, err := roster.DecodeComponent(rawActivity)
	if err != nil {
		return Removal{}, true, fmt.Errorf("decoding %s: %w", attrActivity, err)
	}
	email, err := roster.DecodeComponent(rawEmail)
	if err != nil {
		return Removal{}, true, fmt.Errorf("decoding %s: %w", attrEmail, err)
	}
	return Removal{Activity: activity, Email: email}, true, nil
}

// ControlFromValue rebuilds a detached removal control from the value it
// posted, so it can be dispatched like the control itself.
func ControlFromValue(value string) (*html.Node, error) {
	parts := strings.Split(value, controlSeparator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidControl, value)
	}
	return element("button",
		"class", RemoveControlClass,
		attrActivity, parts[0],
		attrEmail, parts[1],
	), nil
}
