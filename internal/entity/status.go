package entity

import "errors"

// Status is a step of the order lifecycle.
type Status int

const (
	StatusNew Status = iota
	StatusAccepted
	StatusRejected
	StatusInProgress
	StatusCompleted
)

// ErrInvalidTransition is returned when a status change skips or reverses a step.
var ErrInvalidTransition = errors.New("invalid order status transition")

var statusNames = map[Status]string{
	StatusNew:        "NEW",
	StatusAccepted:   "ACCEPTED",
	StatusRejected:   "REJECTED",
	StatusInProgress: "IN_PROGRESS",
	StatusCompleted:  "COMPLETED",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// CanTransition reports whether moving from s to next is a legal single step.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusNew:
		return next == StatusAccepted
	case StatusAccepted:
		return next == StatusRejected || next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	default:
		return false
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
