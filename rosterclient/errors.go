package rosterclient

import (
	"fmt"
	"net/http"
)

// NetworkError is returned when no usable response was obtained: the
// request could not be sent, the connection failed, or the body could not
// be read or decoded.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServiceError is returned for a non-2xx response. Detail holds the
// service's message and is empty when the body carried none.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Detail)
}
