package progress

import "fmt"

// Available reports whether phase can be opened at status s.
func Available(s Status, phase Phase) bool {
	switch phase {
	case PhaseIDo:
		return true
	case PhaseWeDo:
		return s >= StatusIDoComplete
	case PhaseYouDo:
		return s >= StatusWeDoComplete
	}
	return false
}

// Completed reports whether s is past phase.
func Completed(s Status, phase Phase) bool {
	if phase > PhaseYouDo {
		return false
	}
	return s >= phase.Completes()
}

// OverallPercent is the completion figure shown in the lesson header.
func OverallPercent(s Status) int {
	switch s {
	case StatusStarted:
		return 33
	case StatusIDoComplete:
		return 66
	case StatusWeDoComplete:
		return 90
	case StatusYouDoComplete:
		return 100
	}
	return 0
}

// CardPercent is the completion figure shown on feed cards.
func CardPercent(s Status) int {
	switch s {
	case StatusStarted:
		return 25
	case StatusIDoComplete:
		return 50
	case StatusWeDoComplete:
		return 75
	case StatusYouDoComplete:
		return 100
	}
	return 0
}

// CurrentPhase is the phase a learner lands on when opening a module.
func CurrentPhase(s Status) Phase {
	if next, ok := s.Next(); ok {
		return next
	}
	return PhaseYouDo
}

// CallToAction is the feed card button label. A nil state means the module
// has never been opened.
func CallToAction(st *State) string {
	if st == nil {
		return "Start Learning"
	}
	switch st.Status {
	case StatusStarted:
		return "Continue I Do"
	case StatusIDoComplete:
		return "Continue We Do"
	case StatusWeDoComplete:
		return "Continue You Do"
	case StatusYouDoComplete:
		return fmt.Sprintf("Completed • %d pts", st.Score)
	}
	return "Start Learning"
}

// PhaseView is the per-tab projection used by the lesson page.
type PhaseView struct {
	Phase     Phase  `json:"phase"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
	Completed bool   `json:"completed"`
}

// Views projects s onto every phase in lesson order.
func Views(s Status) []PhaseView {
	views := make([]PhaseView, 0, len(Phases))
	for _, p := range Phases {
		views = append(views, PhaseView{
			Phase:     p,
			Label:     p.Label(),
			Available: Available(s, p),
			Completed: Completed(s, p),
		})
	}
	return views
}
