package kit

// EventKind identifies a progress event.
type EventKind int

const (
	PadStarted EventKind = iota
	PadDone
	PadFailed
)

func (k EventKind) String() string {
	switch k {
	case PadStarted:
		return "started"
	case PadDone:
		return "done"
	case PadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports the state of one pad during a render.
type Event struct {
	Kind    EventKind
	Pad     int // 0-based
	Voicing string
	Sample  string // set on PadDone
	Err     error  // set on PadFailed
}
