// Package progress holds the lesson progress state machine: the ordered
// I Do / We Do / You Do statuses, the transition function and the read-only
// projections the presentation layer renders.
package progress

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status is the position of a learner inside a module. Values are ordered;
// a larger value always means more of the module is done.
type Status uint8

const (
	StatusStarted Status = iota
	StatusIDoComplete
	StatusWeDoComplete
	StatusYouDoComplete
)

var (
	ErrUnknownStatus = errors.New("unknown progress status")
	ErrUnknownPhase  = errors.New("unknown phase")
)

var statusNames = [...]string{
	StatusStarted:       "started",
	StatusIDoComplete:   "ido_complete",
	StatusWeDoComplete:  "wedo_complete",
	StatusYouDoComplete: "youdo_complete",
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	return s <= StatusYouDoComplete
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusYouDoComplete
}

// Next returns the phase that has to be completed to leave s.
func (s Status) Next() (Phase, bool) {
	switch s {
	case StatusStarted:
		return PhaseIDo, true
	case StatusIDoComplete:
		return PhaseWeDo, true
	case StatusWeDoComplete:
		return PhaseYouDo, true
	}
	return 0, false
}

// ParseStatus converts the stored representation back into a Status.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status as its text name.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return s.String(), nil
}

func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownStatus)
	}
	return fmt.Errorf("cannot scan %T into progress.Status", src)
}

// Phase is one of the three lesson phases.
type Phase uint8

const (
	PhaseIDo Phase = iota
	PhaseWeDo
	PhaseYouDo
)

// Phases lists every phase in lesson order.
var Phases = []Phase{PhaseIDo, PhaseWeDo, PhaseYouDo}

var phaseNames = [...]string{
	PhaseIDo:   "ido",
	PhaseWeDo:  "wedo",
	PhaseYouDo: "youdo",
}

var phaseLabels = [...]string{
	PhaseIDo:   "I Do",
	PhaseWeDo:  "We Do",
	PhaseYouDo: "You Do",
}

func (p Phase) String() string {
	if p > PhaseYouDo {
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
	return phaseNames[p]
}

// Label is the human readable phase name.
func (p Phase) Label() string {
	if p > PhaseYouDo {
		return p.String()
	}
	return phaseLabels[p]
}

// Completes returns the status reached once p is done.
func (p Phase) Completes() Status {
	switch p {
	case PhaseIDo:
		return StatusIDoComplete
	case PhaseWeDo:
		return StatusWeDoComplete
	default:
		return StatusYouDoComplete
	}
}

// ParsePhase accepts the wire names "ido", "wedo" and "youdo".
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

func (p Phase) MarshalText() ([]byte, error) {
	if p > PhaseYouDo {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPhase, uint8(p))
	}
	return []byte(p.String()), nil
}
