package edit

// State is a step of the edit lifecycle.
type State int

const (
	Idle State = iota
	RowsSelected
	FormOpen
	Validating
	Committing
	Done
	Failed
)

var stateNames = [...]string{
	Idle:         "idle",
	RowsSelected: "rows_selected",
	FormOpen:     "form_open",
	Validating:   "validating",
	Committing:   "committing",
	Done:         "done",
	Failed:       "failed",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText lets states appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
