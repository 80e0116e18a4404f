package assessment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure taxonomy every repository and fetcher error is classified into.
type Kind int

const (
	KindUnknown Kind = iota // network failures and anything unclassified
	KindNotFound
	KindAccessDenied
	KindDegraded
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindDegraded:
		return "degraded"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

var (
	ErrNotFound     = errors.New("assessment: not found")
	ErrAccessDenied = errors.New("assessment: access denied")
	ErrDegraded     = errors.New("assessment: degraded response")
	ErrUnavailable  = errors.New("assessment: temporarily unavailable")

	ErrSendInFlight    = errors.New("assessment: a message is already being sent for this session")
	ErrNoActiveSession = errors.New("assessment: no active session")
	ErrInvalidPageSize = errors.New("assessment: page size not allowed")
	ErrDeleteCancelled = errors.New("assessment: delete not confirmed")
)

// Error wraps a transport failure with its classification and the backend's detail text.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers test the kind with errors.Is(err, ErrNotFound) and friends.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrAccessDenied:
		return e.Kind == KindAccessDenied
	case ErrDegraded:
		return e.Kind == KindDegraded
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

type statusCoder interface {
	StatusCode() int
}

type detailer interface {
	Detail() string
}

// Classify maps any error onto the taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrDegraded):
		return KindDegraded
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusForbidden:
			return KindAccessDenied
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			return KindUnavailable
		}
	}
	return KindUnknown
}

// wrap classifies a transport error for operation op.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	e := &Error{Op: op, Kind: Classify(err), Err: err}
	var sc statusCoder
	if errors.As(err, &sc) {
		e.Status = sc.StatusCode()
	}
	var d detailer
	if errors.As(err, &d) {
		e.Detail = d.Detail()
	}
	return e
}

// DetailOf returns the backend-provided detail text carried by err, if any.
func DetailOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Detail != "" {
		return ae.Detail
	}
	var d detailer
	if errors.As(err, &d) {
		return d.Detail()
	}
	return ""
}
