package domain

// Mode is how runes are acquired for a reading.
type Mode string

const (
	ModeUnset    Mode = ""
	ModePhysical Mode = "physical" // the user draws real runes and records them
	ModeVirtual  Mode = "virtual"  // runes are drawn on the user's behalf
)

// ParseMode validates a user-supplied mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePhysical, ModeVirtual:
		return Mode(s), nil
	}
	return ModeUnset, ErrUnknownMode
}

// Status is the phase of a reading session.
type Status string

const (
	StatusUnset       Status = "unset"
	StatusModeChosen  Status = "mode_chosen"
	StatusCollecting  Status = "collecting"  // spread chosen, runes being drawn
	StatusCompleting  Status = "completing"  // interpreter call in flight
	StatusInterpreted Status = "interpreted" // result ready to commit
	StatusFailed      Status = "failed"      // interpreter failed, degraded result shown
)

// Terminal reports whether the status awaits Commit/Discard.
func (s Status) Terminal() bool {
	return s == StatusInterpreted || s == StatusFailed
}

// Session is the snapshot of an in-progress reading.
// Only the session machine mutates it; callers receive copies.
type Session struct {
	// ID identifies the session instance. It changes on every Reset.
	ID string `json:"id"`

	// Generation increments on every Reset and tags in-flight interpreter calls.
	Generation uint64 `json:"generation"`

	Mode       Mode           `json:"mode"`
	Spread     *Spread        `json:"spread,omitempty"`
	Selections []SelectedRune `json:"selections"`

	// Pending holds a reversible rune picked in physical mode whose
	// orientation has not been confirmed yet.
	Pending *Rune `json:"pending,omitempty"`

	// Pool is the ordered set of runes offered to the user.
	Pool []Rune `json:"pool,omitempty"`

	Status Status          `json:"status"`
	Result *Interpretation `json:"result,omitempty"`
}

// NewSession creates a clean session.
func NewSession(id string, generation uint64) *Session {
	return &Session{
		ID:         id,
		Generation: generation,
		Status:     StatusUnset,
		Selections: []SelectedRune{},
	}
}

// Remaining is the number of runes still to be drawn.
func (s *Session) Remaining() int {
	if s.Spread == nil {
		return 0
	}
	return s.Spread.RuneCount - len(s.Selections)
}

// Full reports whether the spread has all its runes.
func (s *Session) Full() bool {
	return s.Spread != nil && len(s.Selections) >= s.Spread.RuneCount
}

// HasSelected reports whether the rune is already in the spread.
func (s *Session) HasSelected(name string) bool {
	for _, sel := range s.Selections {
		if sel.RuneName == name {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	out := *s
	out.Selections = append([]SelectedRune{}, s.Selections...)
	out.Pool = append([]Rune(nil), s.Pool...)
	if s.Spread != nil {
		sp := *s.Spread
		out.Spread = &sp
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	if s.Result != nil {
		r := s.Result.Clone()
		out.Result = &r
	}
	return &out
}
