package sequencer

import "testing"

func TestNoteLengthDivisors(t *testing.T) {
	cases := []struct {
		nl   NoteLength
		want int
	}{
		{Quarter, 24},
		{Eighth, 12},
		{Sixteenth, 6},
		{ThirtySecond, 3},
	}
	for _, c := range cases {
		if got := c.nl.Divisor(); got != c.want {
			t.Errorf("%s: want divisor %d, got %d", c.nl, c.want, got)
		}
		if !c.nl.Valid() {
			t.Errorf("%s should be valid", c.nl)
		}
	}
	if NoteLength(4).Valid() {
		t.Error("unknown note length should be invalid")
	}
}

func TestNewNoteDefaults(t *testing.T) {
	n := NewNote(60)
	if n.Key != 60 || n.Velocity != DefaultVelocity {
		t.Fatalf("unexpected note %+v", n)
	}
}

func TestSequenceClone(t *testing.T) {
	orig := Sequence{{NewNote(60), NewNote(64)}, {}}
	clone := orig.Clone()
	clone[0][0].Key = 10
	if orig[0][0].Key != 60 {
		t.Fatal("clone must not share step storage")
	}
	if Sequence(nil).Clone() != nil {
		t.Fatal("nil sequence clones to nil")
	}
}
