package controller

import "fmt"

// LoadState is the state of the roster fetch.
type LoadState int

const (
	// LoadStateIdle indicates no fetch has started.
	LoadStateIdle LoadState = iota
	// LoadStateLoading indicates a fetch is in progress.
	LoadStateLoading
	// LoadStateLoaded indicates the last fetch succeeded and was rendered.
	LoadStateLoaded
	// LoadStateFailed indicates the last fetch failed.
	LoadStateFailed
)

// String returns the string representation of the load state.
func (s LoadState) String() string {
	switch s {
	case LoadStateIdle:
		return "idle"
	case LoadStateLoading:
		return "loading"
	case LoadStateLoaded:
		return "loaded"
	case LoadStateFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s LoadState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// MutationState is the state of signup and removal requests.
type MutationState int

const (
	// MutationStateIdle indicates no mutation is in flight.
	MutationStateIdle MutationState = iota
	// MutationStateSubmitting indicates at least one mutation is in flight.
	MutationStateSubmitting
)

// String returns the string representation of the mutation state.
func (s MutationState) String() string {
	switch s {
	case MutationStateIdle:
		return "idle"
	case MutationStateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s MutationState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// LoadError is returned by Refresh when the roster could not be fetched.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading activities: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
