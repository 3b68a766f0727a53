package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dinocosta/seqex/notify"
	"github.com/dinocosta/seqex/sequencer"
)

// Token identifies this UI on the notify broker, so its own commands are
// not echoed back to it.
const Token = "tui"

// The UI refuses tempos below 60 even though the engine only requires > 0;
// anything slower is never what a user meant.
const (
	minBPM = 60
	maxBPM = 300
)

var (
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55"))
)

type Model struct {
	Seq    *sequencer.Sequencer
	Broker *notify.Broker

	events   <-chan any
	cursor   int
	octave   int // base octave for newly entered notes; never reaches the engine
	playhead int
	lastErr  string
	quitting bool
}

// EventMsg wraps a sequencer state change delivered via the broker.
type EventMsg sequencer.Event

func NewModel(seq *sequencer.Sequencer, broker *notify.Broker) Model {
	return Model{
		Seq:    seq,
		Broker: broker,
		events: broker.Subscribe(seq.Topic(), Token),
		octave: 4,
	}
}

// ListenForEvents returns a single-shot command; Update re-arms it after
// every delivered event.
func ListenForEvents(events <-chan any) tea.Cmd {
	return func() tea.Msg {
		for ev := range events {
			if e, ok := ev.(sequencer.Event); ok {
				return EventMsg(e)
			}
		}
		return nil
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForEvents(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.lastErr = ""
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Seq.Stop()
			return m, tea.Quit

		case "p":
			if m.Seq.IsPlaying() {
				m.Seq.Stop()
			} else {
				m.Seq.Play()
			}

		case "enter":
			m.Seq.Start()
			m.playhead = 0

		case "s":
			m.Seq.Stop()

		case "c":
			m.Seq.Continue()

		case "+", "=":
			m.adjustBPM(5)

		case "-", "_":
			m.adjustBPM(-5)

		case "h", "left":
			if m.cursor > 0 {
				m.cursor--
			}

		case "l", "right":
			if m.cursor < len(m.Seq.Sequence())-1 {
				m.cursor++
			}

		case "j", "down":
			m.transposeStep(-1)

		case "k", "up":
			m.transposeStep(1)

		case "J":
			m.transposeStep(-12)

		case "K":
			m.transposeStep(12)

		case " ":
			m.toggleStep()

		case "[":
			if m.octave > 0 {
				m.octave--
			}

		case "]":
			if m.octave < 8 {
				m.octave++
			}

		case "n":
			m.cycleNoteLength()

		case "<":
			m.shiftChannel(-1)

		case ">":
			m.shiftChannel(1)
		}

	case EventMsg:
		if msg.Kind == sequencer.EventStep {
			m.playhead = msg.Step
		}
		return m, ListenForEvents(m.events)
	}

	return m, nil
}

func (m *Model) adjustBPM(delta int) {
	bpm, err := m.Seq.BPM()
	if err != nil {
		m.lastErr = "no internal clock (following external master)"
		return
	}
	bpm += delta
	if bpm < minBPM {
		bpm = minBPM
	}
	if bpm > maxBPM {
		bpm = maxBPM
	}
	if err := m.Seq.UpdateBPM(bpm, Token); err != nil {
		m.lastErr = err.Error()
	}
}

// transposeStep shifts every note in the cursor step, so chords move as a
// unit.
func (m *Model) transposeStep(delta int) {
	seq := m.Seq.Sequence()
	if m.cursor >= len(seq) || len(seq[m.cursor]) == 0 {
		return
	}
	for i, n := range seq[m.cursor] {
		key := int(n.Key) + delta
		if key < 0 {
			key = 0
		}
		if key > 127 {
			key = 127
		}
		seq[m.cursor][i].Key = uint8(key)
	}
	m.Seq.UpdateSequence(seq, Token)
}

// toggleStep turns the cursor step into a rest, or seeds it with a C of the
// current octave.
func (m *Model) toggleStep() {
	seq := m.Seq.Sequence()
	if m.cursor >= len(seq) {
		return
	}
	if len(seq[m.cursor]) > 0 {
		seq[m.cursor] = nil
	} else {
		seq[m.cursor] = sequencer.Step{sequencer.NewNote(uint8(12 * (m.octave + 1)))}
	}
	m.Seq.UpdateSequence(seq, Token)
}

func (m *Model) cycleNoteLength() {
	next := (m.Seq.CurrentNoteLength() + 1) % 4
	if err := m.Seq.UpdateNoteLength(next, Token); err != nil {
		m.lastErr = err.Error()
	}
}

func (m *Model) shiftChannel(delta int) {
	ch := int(m.Seq.Channel()) + delta
	if ch < 0 || ch > 15 {
		return
	}
	m.Seq.UpdateChannel(uint8(ch), Token)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	seq := m.Seq.Sequence()
	playing := m.Seq.IsPlaying()

	// Step grid, one character per step
	var cells []string
	for i, step := range seq {
		char := "·"
		if len(step) == 1 {
			char = noteToChar(step[0].Key)
		} else if len(step) > 1 {
			char = "#" // chord
		}

		style := dimStyle
		if len(step) > 0 {
			style = activeStyle
		}
		if i == m.cursor {
			style = style.Inherit(cursorStyle)
		}
		if i == m.playhead && playing {
			style = playheadStyle
		}

		cells = append(cells, style.Render(char))
	}
	grid := strings.Join(cells, "")

	playState := "stop"
	if playing {
		playState = "play"
	}

	bpmStr := "ext"
	if bpm, err := m.Seq.BPM(); err == nil {
		bpmStr = fmt.Sprintf("%3d", bpm)
	}

	cursorNote := "---"
	if m.cursor < len(seq) && len(seq[m.cursor]) > 0 {
		cursorNote = noteToName(seq[m.cursor][0].Key)
	}

	status := statusStyle.Render(fmt.Sprintf("%s %sbpm %s ch:%02d oct:%d  %s",
		playState, bpmStr, m.Seq.CurrentNoteLength(), m.Seq.Channel(), m.octave, cursorNote))

	help := dimStyle.Render("h/l:move j/k:note J/K:oct-shift space:rest p:play s:stop enter:start c:cont n:len +/-:tempo [/]:octave </>:chan q:quit")

	out := fmt.Sprintf("\n%s\n%s\n\n%s\n", grid, status, help)
	if m.lastErr != "" {
		out += errorStyle.Render(m.lastErr) + "\n"
	}
	return out
}

// noteToChar converts a MIDI note to a single character for the grid
// (uppercase naturals, lowercase sharps)
func noteToChar(note uint8) string {
	notes := []string{"C", "c", "D", "d", "E", "F", "f", "G", "g", "A", "a", "B"}
	return notes[note%12]
}

// noteToName converts a MIDI note to a readable name (e.g., "C4", "F#3")
func noteToName(note uint8) string {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := int(note)/12 - 1
	return fmt.Sprintf("%2s%d", names[note%12], octave)
}
