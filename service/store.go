// Package service implements a reference activities service: the REST
// endpoint the rollcall client synchronizes with. It keeps its roster in
// memory and is intended for local development and tests.
package service

import (
	"fmt"
	"net/http"
	"net/mail"
	"sync"

	"github.com/nomis52/rollcall/roster"
)

// Error is a rejected request. Detail is sent to the client verbatim.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

var (
	ErrActivityNotFound    = &Error{Status: http.StatusNotFound, Detail: "Activity not found"}
	ErrAlreadySignedUp     = &Error{Status: http.StatusBadRequest, Detail: "Student already signed up for an activity"}
	ErrActivityFull        = &Error{Status: http.StatusBadRequest, Detail: "Activity is full"}
	ErrParticipantNotFound = &Error{Status: http.StatusNotFound, Detail: "Student not found in this activity"}
	ErrInvalidEmail        = &Error{Status: http.StatusUnprocessableEntity, Detail: "Invalid email address"}
)

// Store is an in-memory roster guarded by a mutex.
type Store struct {
	mu     sync.Mutex
	names  []string
	byName map[string]*roster.Activity
}

// NewStore returns a store holding entries in the given order.
func NewStore(entries ...roster.Entry) *Store {
	s := &Store{byName: make(map[string]*roster.Activity, len(entries))}
	for _, e := range entries {
		if _, exists := s.byName[e.Name]; !exists {
			s.names = append(s.names, e.Name)
		}
		a := e.Activity
		a.Participants = append([]string(nil), a.Participants...)
		s.byName[e.Name] = &a
	}
	return s
}

// NewSeededStore returns a store holding the default school activities.
func NewSeededStore() *Store {
	return NewStore(DefaultActivities()...)
}

// Roster returns a snapshot of every activity in store order.
func (s *Store) Roster() roster.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]roster.Entry, 0, len(s.names))
	for _, name := range s.names {
		a := *s.byName[name]
		a.Participants = append([]string{}, a.Participants...)
		entries = append(entries, roster.Entry{Name: name, Activity: a})
	}
	return roster.FromEntries(entries...)
}

// SignUp enrolls email in activity. A student may hold only one place
// across all activities.
func (s *Store) SignUp(activity, email string) (string, error) {
	if err := validateEmail(email); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byName[activity]
	if !ok {
		return "", ErrActivityNotFound
	}
	for _, other := range s.byName {
		if contains(other.Participants, email) {
			return "", ErrAlreadySignedUp
		}
	}
	if len(a.Participants) >= a.MaxParticipants {
		return "", ErrActivityFull
	}
	a.Participants = append(a.Participants, email)
	return fmt.Sprintf("Signed up %s for %s", email, activity), nil
}

// Unregister removes email from activity.
func (s *Store) Unregister(activity, email string) (string, error) {
	if err := validateEmail(email); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byName[activity]
	if !ok {
		return "", ErrActivityNotFound
	}
	idx := index(a.Participants, email)
	if idx < 0 {
		return "", ErrParticipantNotFound
	}
	a.Participants = append(a.Participants[:idx], a.Participants[idx+1:]...)
	return fmt.Sprintf("Unregistered %s from %s", email, activity), nil
}

// validateEmail accepts a bare address such as "a@b.edu". Display-name
// forms like "A <a@b.edu>" are rejected.
func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	return nil
}

func contains(list []string, v string) bool {
	return index(list, v) >= 0
}

func index(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

// DefaultActivities returns the activities a fresh service starts with.
func DefaultActivities() []roster.Entry {
	return []roster.Entry{
		{Name: "Basketball Team", Activity: roster.Activity{
			Description:     "Team practices and competitive games",
			Schedule:        "Tuesdays and Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 15,
		}},
		{Name: "Soccer Club", Activity: roster.Activity{
			Description:     "Skill development and friendly matches",
			Schedule:        "Wednesdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 18,
		}},
		{Name: "Art Club", Activity: roster.Activity{
			Description:     "Explore drawing, painting, and mixed media",
			Schedule:        "Mondays, 3:30 PM - 5:00 PM",
			MaxParticipants: 16,
		}},
		{Name: "Drama Society", Activity: roster.Activity{
			Description:     "Acting workshops and stage productions",
			Schedule:        "Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 20,
		}},
		{Name: "Math Olympiad", Activity: roster.Activity{
			Description:     "Problem solving and math competition prep",
			Schedule:        "Wednesdays, 4:00 PM - 5:00 PM",
			MaxParticipants: 12,
		}},
		{Name: "Debate Club", Activity: roster.Activity{
			Description:     "Structured debates and public speaking practice",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 14,
		}},
		{Name: "Chess Club", Activity: roster.Activity{
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		}},
		{Name: "Programming Class", Activity: roster.Activity{
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		}},
		{Name: "Gym Class", Activity: roster.Activity{
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		}},
	}
}
