package reveal

// State identifies where a reveal session is in its lifecycle.
type State int

const (
	// StateHidden is the resting state; no secret is held.
	StateHidden State = iota
	// StateLoading means a re-acquisition scan is in flight.
	StateLoading
	// StateRevealed means the secret is readable and the countdown is
	// running.
	StateRevealed
	// StateError retains the failure message from the last attempt;
	// no secret is held.
	StateError
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "HIDDEN"
	case StateLoading:
		return "LOADING"
	case StateRevealed:
		return "REVEALED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
