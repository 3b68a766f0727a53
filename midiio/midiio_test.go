package midiio

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestDecodeTransport(t *testing.T) {
	cases := []struct {
		b    byte
		want Transport
	}{
		{0xF8, Tick},
		{0xFA, Start},
		{0xFB, Continue},
		{0xFC, Stop},
	}
	for _, c := range cases {
		got, ok := DecodeTransport(c.b)
		if !ok || got != c.want {
			t.Errorf("0x%X: want %s, got %s (ok=%v)", c.b, c.want, got, ok)
		}
	}

	// Non-transport bytes: note data, song position, active sense.
	for _, b := range []byte{0x90, 0x80, 0xF2, 0xFE, 0x00} {
		if _, ok := DecodeTransport(b); ok {
			t.Errorf("0x%X should not decode as transport", b)
		}
	}
}

func TestTransportMessageBytes(t *testing.T) {
	cases := []struct {
		t    Transport
		want []byte
	}{
		{Tick, []byte{0xF8}},
		{Start, []byte{0xFA}},
		{Continue, []byte{0xFB}},
		{Stop, []byte{0xFC}},
	}
	for _, c := range cases {
		if got := []byte(c.t.Message()); !bytes.Equal(got, c.want) {
			t.Errorf("%s: want % X, got % X", c.t, c.want, got)
		}
	}
}

func TestTransportRoundTrip(t *testing.T) {
	for _, tr := range []Transport{Tick, Start, Continue, Stop} {
		got, ok := DecodeTransport(tr.Message()[0])
		if !ok || got != tr {
			t.Errorf("%s does not survive encode/decode", tr)
		}
	}
}

func TestNoteWireFormat(t *testing.T) {
	// The engine relies on gomidi producing exactly these bytes.
	if got := []byte(midi.NoteOn(3, 60, 100)); !bytes.Equal(got, []byte{0x93, 60, 100}) {
		t.Errorf("NoteOn wire format: % X", got)
	}
	if got := []byte(midi.NoteOff(3, 60)); !bytes.Equal(got, []byte{0x83, 60, 0}) {
		t.Errorf("NoteOff wire format: % X", got)
	}
}
