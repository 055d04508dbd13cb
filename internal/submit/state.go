package submit

// Phase is the submit button's lifecycle position.
type Phase int

const (
	// PhaseChecking shows while session and connectivity are verified.
	PhaseChecking Phase = iota
	// PhaseReady accepts a submit click.
	PhaseReady
	// PhaseAlreadySubmitted blocks resubmission of a recorded document.
	PhaseAlreadySubmitted
	// PhaseSubmitting shows while an upload is in flight.
	PhaseSubmitting
	// PhaseSuccess shows briefly after a confirmed submission.
	PhaseSuccess
	// PhaseError shows a failed submission until the timed revert.
	PhaseError
	// PhaseNoSession means the user must sign in first.
	PhaseNoSession
	// PhaseRelayUnavailable means the relay liveness probe failed.
	PhaseRelayUnavailable
)

func (p Phase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseReady:
		return "ready"
	case PhaseAlreadySubmitted:
		return "already-submitted"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	case PhaseNoSession:
		return "no-session"
	case PhaseRelayUnavailable:
		return "relay-unavailable"
	default:
		return "unknown"
	}
}

// ButtonState is the complete UI-observable state. Instances are immutable
// snapshots; the orchestrator replaces the whole value on every change.
type ButtonState struct {
	Phase  Phase
	Label  string
	Detail string
}
