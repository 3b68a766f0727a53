package sequencer

import "errors"

// DefaultVelocity is used for notes that don't carry their own.
const DefaultVelocity = 100

// Note is a MIDI note number with a velocity. Key and Velocity both live in
// [0,127].
type Note struct {
	Key      uint8
	Velocity uint8
}

// NewNote builds a note at the default velocity. Keys above 127 are clamped
// to 127 (the top of the MIDI range).
func NewNote(key uint8) Note {
	if key > 127 {
		key = 127
	}
	return Note{Key: key, Velocity: DefaultVelocity}
}

// Step is the set of notes played together on one slot of the sequence. An
// empty step is a rest.
type Step []Note

// Sequence is an ordered list of steps. Its length alone drives playhead
// wraparound.
type Sequence []Step

// Clone returns a deep copy, so callers can edit it without racing the
// engine's own copy.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, step := range s {
		out[i] = append(Step(nil), step...)
	}
	return out
}

// NoteLength is the playback subdivision. Each value maps to a fixed pulse
// divisor against the 24 PPQN stream.
type NoteLength uint8

const (
	Quarter NoteLength = iota
	Eighth
	Sixteenth
	ThirtySecond
)

// ErrInvalidNoteLength is returned for subdivisions outside the four
// recognized values.
var ErrInvalidNoteLength = errors.New("invalid note length")

// Divisor returns the number of pulses per step advance.
func (nl NoteLength) Divisor() int {
	switch nl {
	case Quarter:
		return 24
	case Eighth:
		return 12
	case Sixteenth:
		return 6
	case ThirtySecond:
		return 3
	}
	return 0
}

// Valid reports whether nl is one of the four recognized subdivisions.
func (nl NoteLength) Valid() bool {
	return nl.Divisor() > 0
}

func (nl NoteLength) String() string {
	switch nl {
	case Quarter:
		return "1/4"
	case Eighth:
		return "1/8"
	case Sixteenth:
		return "1/16"
	case ThirtySecond:
		return "1/32"
	}
	return "invalid"
}
