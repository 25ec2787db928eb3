package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for workflow logging.

// ChangeRequestID adds a change request ID field.
func ChangeRequestID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("change_request_id", id)
	}
}

// Env adds an environment field.
func Env(env remoteconfig.Env) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("environment", string(env))
	}
}

// Status adds a status field.
func Status(s changerequest.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s changerequest.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s changerequest.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// Action adds an audit action field.
func Action(a audit.Action) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", string(a))
	}
}

// Actor adds an acting user field.
func Actor(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("actor", id)
	}
}

// ReviewerID adds a reviewer field.
func ReviewerID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reviewer_id", id)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an int field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}

// Bool adds a bool field with custom key.
func Bool(key string, value bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool(key, value)
	}
}
