package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dinocosta/seqex/clock"
	"github.com/dinocosta/seqex/config"
	"github.com/dinocosta/seqex/debug"
	"github.com/dinocosta/seqex/midiio"
	"github.com/dinocosta/seqex/notify"
	"github.com/dinocosta/seqex/sequencer"
	"github.com/dinocosta/seqex/tui"
)

type args struct {
	Port          string `arg:"-p,--port" help:"MIDI output port (substring match)"`
	BPM           *int   `arg:"-b,--bpm" help:"initial tempo"`
	Channel       *int   `arg:"-c,--channel" help:"MIDI channel 0-15"`
	ExternalClock string `arg:"--external-clock" help:"follow this MIDI input port as clock master instead of the internal clock"`
	SendClock     bool   `arg:"--send-clock" help:"forward clock and transport bytes to the output port"`
	ListPorts     bool   `arg:"--list-ports" help:"list MIDI ports and exit"`
	Debug         bool   `arg:"--debug" help:"log to ~/.config/seqex/debug.log"`
}

func (args) Description() string {
	return "seqex - a clock-synced MIDI step sequencer"
}

func main() {
	var a args
	arg.MustParse(&a)
	defer midiio.Close()

	if a.ListPorts {
		fmt.Println("inputs:")
		for _, name := range midiio.InPortNames() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("outputs:")
		for _, name := range midiio.OutPortNames() {
			fmt.Printf("  %s\n", name)
		}
		return
	}

	if a.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	// Flags override the saved config.
	if a.Port != "" {
		cfg.OutputPort = a.Port
	}
	if a.BPM != nil {
		cfg.BPM = *a.BPM
	}
	if a.Channel != nil {
		cfg.Channel = *a.Channel
	}
	if a.ExternalClock != "" {
		cfg.InputPort = a.ExternalClock
	}
	if a.SendClock {
		cfg.SendClock = true
	}

	if cfg.OutputPort == "" {
		outs := midiio.OutPortNames()
		if len(outs) == 0 {
			fmt.Fprintln(os.Stderr, "no MIDI output ports available")
			os.Exit(1)
		}
		cfg.OutputPort = outs[0]
	}

	send, err := midiio.Sender(cfg.OutputPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	broker := notify.NewBroker()

	// The clock handle is built here and injected; the engine never looks
	// one up by name.
	var clk *clock.Clock
	if cfg.InputPort == "" {
		clk, err = clock.Start(cfg.BPM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer clk.Stop()
		if cfg.SendClock {
			clk.Subscribe(clock.NewSinkSubscriber(send))
		}
	}

	seq := sequencer.New(send, clk, broker)
	seq.UpdateChannel(uint8(cfg.Channel), "")

	// A bar of C major to start from.
	seq.UpdateSequence(sequencer.Sequence{
		{sequencer.NewNote(60)},
		{sequencer.NewNote(64)},
		{sequencer.NewNote(67)},
		{sequencer.NewNote(72)},
		{},
		{sequencer.NewNote(67)},
		{sequencer.NewNote(64)},
		{},
	}, "")

	// When forwarding clock to hardware, forward our transport changes too,
	// so downstream devices start and stop with us.
	if cfg.SendClock && cfg.InputPort == "" {
		go func() {
			for ev := range broker.Subscribe(seq.Topic(), "transport-out") {
				e, ok := ev.(sequencer.Event)
				if !ok {
					continue
				}
				switch e.Kind {
				case sequencer.EventStart:
					send(midiio.Start.Message())
				case sequencer.EventContinue:
					send(midiio.Continue.Message())
				case sequencer.EventStop:
					send(midiio.Stop.Message())
				}
			}
		}()
	}

	// Follow an external master if one was named.
	if cfg.InputPort != "" {
		stopListen, err := midiio.ListenTransport(cfg.InputPort, seq)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer stopListen()
	}

	m := tui.NewModel(seq, broker)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Whatever played last is next run's starting point.
	if bpm, err := seq.BPM(); err == nil {
		cfg.BPM = bpm
	}
	cfg.Channel = int(seq.Channel())
	cfg.NoteLength = seq.CurrentNoteLength().String()
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "save config: %v\n", err)
	}
}
