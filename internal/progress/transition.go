package progress

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrPhaseUnavailable is returned when a phase is completed before the
	// phase in front of it.
	ErrPhaseUnavailable = errors.New("phase is not available yet")
	ErrInvalidScore     = errors.New("invalid score")
)

// MaxScore bounds the We Do and You Do scores.
const MaxScore = 100

// State is the mutable part of a progress record.
type State struct {
	Status Status
	Score  int
}

// Outcome is the result of applying a phase completion to a status.
type Outcome struct {
	Status  Status
	Changed bool
}

// Transition is total over (current, phase). Completing the phase right
// after current advances; completing an already finished phase leaves the
// status untouched; anything further ahead is rejected.
func Transition(current Status, phase Phase) (Outcome, error) {
	if !current.Valid() {
		return Outcome{}, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(current))
	}
	if phase > PhaseYouDo {
		return Outcome{}, fmt.Errorf("%w: %d", ErrUnknownPhase, uint8(phase))
	}

	target := phase.Completes()
	if current >= target {
		return Outcome{Status: current}, nil
	}
	if !Available(current, phase) {
		return Outcome{Status: current}, fmt.Errorf("%w: %s while %s", ErrPhaseUnavailable, phase, current)
	}
	return Outcome{Status: target, Changed: true}, nil
}

// CheckScore validates a submitted score against the contract of the phase.
// I Do carries no score; We Do and You Do take a value in [0, MaxScore].
func CheckScore(phase Phase, score int) error {
	switch phase {
	case PhaseIDo:
		if score != 0 {
			return fmt.Errorf("%w: %s does not carry a score", ErrInvalidScore, phase)
		}
	case PhaseWeDo, PhaseYouDo:
		if score < 0 || score > MaxScore {
			return fmt.Errorf("%w: %d is outside 0..%d", ErrInvalidScore, score, MaxScore)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownPhase, uint8(phase))
	}
	return nil
}

// Complete applies a phase completion to s. The score replaces the stored
// one only when the status actually advances and the phase carries a score.
func Complete(s State, phase Phase, score int) (State, bool, error) {
	if err := CheckScore(phase, score); err != nil {
		return s, false, err
	}
	out, err := Transition(s.Status, phase)
	if err != nil {
		return s, false, err
	}
	if !out.Changed {
		return s, false, nil
	}

	next := State{Status: out.Status, Score: s.Score}
	if phase != PhaseIDo {
		next.Score = score
	}
	return next, true, nil
}

// YouDoScore rates a submission by its length: half a point per character,
// never below 50 and never above MaxScore.
func YouDoScore(length int) int {
	score := float64(length) * 0.5
	score = math.Max(50, math.Min(MaxScore, score))
	return int(math.Round(score))
}
