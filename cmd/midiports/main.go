// midiports lists the MIDI ports the driver can see. Handy when picking a
// value for seqex --port / --external-clock.
package main

import (
	"fmt"
	"time"

	"github.com/dinocosta/seqex/midiio"
)

func main() {
	type result struct {
		ins  []string
		outs []string
	}

	// Port enumeration can hang on a wedged CoreMIDI, so race it against a
	// timeout instead of blocking forever.
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: midiio.InPortNames(), outs: midiio.OutPortNames()}
	}()

	select {
	case r := <-ch:
		fmt.Println("=== MIDI Input Ports ===")
		for i, name := range r.ins {
			fmt.Printf("  %d: %s\n", i, name)
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, name := range r.outs {
			fmt.Printf("  %d: %s\n", i, name)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("TIMEOUT! The MIDI server is hung.")
		fmt.Println("On macOS: sudo killall coreaudiod midiserver")
	}
	midiio.Close()
}
