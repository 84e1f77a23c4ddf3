// Package roster holds the activity data model shared by the client and the
// reference service.
//
// A Roster maps activity names to their Activity state. It remembers the key
// order of the JSON object it was decoded from, so a roster rendered from a
// service response lists activities in the order the service sent them.
package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Activity is the state of a single activity as reported by the service.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns the number of open places. It is negative when the
// service has enrolled more participants than the maximum.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Roster is an ordered mapping of activity name to Activity.
// The zero value is an empty roster.
type Roster struct {
	names      []string
	activities map[string]Activity
}

// Entry is a single named activity, used to build a Roster in a given order.
type Entry struct {
	Name     string
	Activity Activity
}

// New returns an empty roster.
func New() Roster {
	return Roster{activities: make(map[string]Activity)}
}

// FromEntries builds a roster preserving the order of entries.
// A repeated name keeps its first position and its last value.
func FromEntries(entries ...Entry) Roster {
	r := New()
	for _, e := range entries {
		r.set(e.Name, e.Activity)
	}
	return r
}

func (r *Roster) set(name string, a Activity) {
	if r.activities == nil {
		r.activities = make(map[string]Activity)
	}
	if _, exists := r.activities[name]; !exists {
		r.names = append(r.names, name)
	}
	r.activities[name] = a
}

// Len returns the number of activities.
func (r Roster) Len() int {
	return len(r.names)
}

// Names returns the activity names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Get returns the named activity.
func (r Roster) Get(name string) (Activity, bool) {
	a, ok := r.activities[name]
	return a, ok
}

// Each calls fn for every activity in roster order.
func (r Roster) Each(fn func(name string, a Activity)) {
	for _, name := range r.names {
		fn(name, r.activities[name])
	}
}

// UnmarshalJSON decodes a JSON object of activities, recording key order.
func (r *Roster) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("roster: expected JSON object, got %v", tok)
	}

	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("roster: expected activity name, got %v", tok)
		}
		var a Activity
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("roster: decoding activity %q: %w", name, err)
		}
		out.set(name, a)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// MarshalJSON encodes the roster as a JSON object in roster order.
func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		a := r.activities[name]
		if a.Participants == nil {
			a.Participants = []string{}
		}
		value, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
