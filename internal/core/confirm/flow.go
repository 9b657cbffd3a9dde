// Package confirm implements the single-slot confirmation dialog state machine
// shared by the quit, join and discard-host-form prompts.
package confirm

// State is the lifecycle state of a confirmation flow.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// Result is the outcome delivered to a flow's callback.
type Result int

const (
	Confirmed Result = iota
	Cancelled
)

func (r Result) String() string {
	if r == Confirmed {
		return "confirmed"
	}
	return "cancelled"
}

// Prompt describes an open confirmation.
type Prompt struct {
	Title   string
	Message string
}

// Flow holds at most one open confirmation. Each open confirmation carries a
// single-shot callback that fires exactly once when it resolves.
type Flow struct {
	state  State
	prompt Prompt
	done   func(Result)
}

// Open shows a new confirmation. A confirmation that is already open is
// resolved as Cancelled first; flows never stack. Follow-up prompts opened by
// a displaced callback are cancelled the same way, so p always ends up open.
func (f *Flow) Open(p Prompt, done func(Result)) {
	for f.state == StateOpen {
		f.resolve(Cancelled)
	}
	f.state = StateOpen
	f.prompt = p
	f.done = done
}

// Confirm resolves the open confirmation as Confirmed. No-op when closed.
func (f *Flow) Confirm() {
	f.resolve(Confirmed)
}

// Cancel resolves the open confirmation as Cancelled. No-op when closed.
func (f *Flow) Cancel() {
	f.resolve(Cancelled)
}

// State returns the current state.
func (f *Flow) State() State {
	return f.state
}

// IsOpen reports whether a confirmation is showing.
func (f *Flow) IsOpen() bool {
	return f.state == StateOpen
}

// Prompt returns the open prompt, or the zero Prompt when closed.
func (f *Flow) Prompt() Prompt {
	return f.prompt
}

func (f *Flow) resolve(r Result) {
	if f.state != StateOpen {
		return
	}

	// Clear before invoking so a callback that opens a new flow is not clobbered.
	done := f.done
	f.state = StateClosed
	f.prompt = Prompt{}
	f.done = nil

	if done != nil {
		done(r)
	}
}
