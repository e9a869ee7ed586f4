package checkout

// Phase is the lifecycle position of the current attempt.
type Phase string

const (
	// PhaseIdle waits for the user to tap buy.
	PhaseIdle Phase = "idle"
	// PhaseAuthorizing waits for the payment authority to hand over a credential.
	PhaseAuthorizing Phase = "authorizing"
	// PhaseCharging runs token creation and the charge.
	PhaseCharging Phase = "charging"
	// PhaseSettled holds the disposition until the sheet is dismissed.
	PhaseSettled Phase = "settled"
	// PhaseCancelled is passed through when the sheet is dismissed before settlement.
	PhaseCancelled Phase = "cancelled"
)

func (p Phase) String() string { return string(p) }

// Disposition is the outcome of an attempt.
type Disposition string

const (
	DispositionSuccess Disposition = "success"
	DispositionFailure Disposition = "failure"
)

func (d Disposition) String() string { return string(d) }

// User-visible status texts.
const (
	StatusAuthorizing = "Authorizing…"
	StatusProcessing  = "Processing…"
	StatusThankYou    = "Thank you"
	StatusFailed      = "Something went wrong."
)

// tokenFailureStatus is shown when the token provider reports an error.
func tokenFailureStatus(err error) string {
	return "Something went wrong: " + err.Error()
}

// State is a snapshot of the checkout as the presentation layer sees it.
type State struct {
	Phase Phase `json:"phase"`
	// Disposition of the last settled attempt. It is cleared when a new
	// purchase is initiated.
	Disposition Disposition `json:"disposition,omitempty"`
	// StatusText is the status line; empty means none.
	StatusText       string `json:"status_text,omitempty"`
	BuyButtonEnabled bool   `json:"buy_button_enabled"`
	// AttemptID identifies the running attempt; empty while idle.
	AttemptID string `json:"attempt_id,omitempty"`
}

// Settled reports the disposition when the attempt is settled.
func (s State) Settled() (Disposition, bool) {
	if s.Phase != PhaseSettled {
		return "", false
	}
	return s.Disposition, true
}
