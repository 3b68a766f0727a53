package sequencer

// EventKind tags the state changes a sequencer publishes on its topic.
type EventKind uint8

const (
	EventBPM EventKind = iota
	EventSequence
	EventStep
	EventNoteLength
	EventChannel
	EventStart
	EventContinue
	EventStop
)

// Event is published through the notify broker whenever the engine's state
// changes. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	BPM        int
	Sequence   Sequence
	Step       int
	NoteLength NoteLength
	Channel    uint8
}

func (k EventKind) String() string {
	switch k {
	case EventBPM:
		return "bpm"
	case EventSequence:
		return "sequence"
	case EventStep:
		return "step"
	case EventNoteLength:
		return "note_length"
	case EventChannel:
		return "channel"
	case EventStart:
		return "start"
	case EventContinue:
		return "continue"
	case EventStop:
		return "stop"
	}
	return "unknown"
}
