// ABOUTME: Defines the Status enum for agent slot lifecycle states and the status-string vocabulary.
// ABOUTME: Provides String/Icon methods and ParseStatus for mapping external status strings onto the enum.
package roster

import "strings"

// Status represents the lifecycle state of an agent slot.
type Status int

const (
	StatusIdle     Status = iota // Agent has not been invoked in this run
	StatusWorking                // Agent is currently executing
	StatusComplete               // Agent finished successfully
	StatusError                  // Agent finished with an error
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusWorking:
		return "working"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Icon returns a bracket-style status marker for text rendering.
func (s Status) Icon() string {
	switch s {
	case StatusIdle:
		return "[ ]"
	case StatusWorking:
		return "[~]"
	case StatusComplete:
		return "[*]"
	case StatusError:
		return "[!]"
	default:
		return "[?]"
	}
}

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// MarshalText encodes the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name. Unknown names decode as idle.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, ok := ParseStatus(string(text))
	if !ok {
		parsed = StatusIdle
	}
	*s = parsed
	return nil
}

// statusWords is the closed vocabulary of status strings the pipeline emits.
var statusWords = map[string]Status{
	"idle":        StatusIdle,
	"pending":     StatusIdle,
	"waiting":     StatusIdle,
	"queued":      StatusIdle,
	"not_started": StatusIdle,

	"working":     StatusWorking,
	"running":     StatusWorking,
	"in_progress": StatusWorking,
	"in-progress": StatusWorking,
	"processing":  StatusWorking,
	"started":     StatusWorking,
	"active":      StatusWorking,
	"busy":        StatusWorking,

	"complete":  StatusComplete,
	"completed": StatusComplete,
	"done":      StatusComplete,
	"success":   StatusComplete,
	"succeeded": StatusComplete,
	"finished":  StatusComplete,

	"error":   StatusError,
	"failed":  StatusError,
	"failure": StatusError,
	"errored": StatusError,
}

// ParseStatus maps an external status string onto a Status. Matching is
// case-insensitive and ignores surrounding whitespace. Strings outside the
// vocabulary return false.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusWords[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}
