package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"solo-orchestra/debug"
	"solo-orchestra/midi"
	"solo-orchestra/performance"
	"solo-orchestra/player"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	debug.EnableStderr(log.InfoLevel)
	defer gomidi.CloseDriver()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	backend := midi.NewDriverBackend()
	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts(backend)
	case "monitor":
		err = monitor(ctx, backend, args)
	case "panic":
		err = panicAll(backend)
	case "play":
		err = play(ctx, backend, args)
	case "leds":
		err = testLEDs(ctx, backend)
	case "poll":
		pollDevices(ctx, backend)
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                  - List all MIDI ports")
	fmt.Println("  monitor <input>       - Print messages from an input")
	fmt.Println("  panic                 - All notes off on every output")
	fmt.Println("  play <file> <output>  - Play a MIDI file to an output")
	fmt.Println("  leds                  - Light a Launchpad diagonal")
	fmt.Println("  poll                  - Poll for device changes")
}

func listPorts(b midi.Backend) error {
	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, err := midi.PortNames(b)
	if err != nil {
		fmt.Println("Fix a hung CoreMIDI with: sudo killall coreaudiod midiserver")
		return err
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

// bindAll makes one logical device per port, named after the port
func bindAll(b midi.Backend) (*midi.Directory, []performance.Device, error) {
	ins, outs, err := midi.PortNames(b)
	if err != nil {
		return nil, nil, err
	}
	var inDevs, outDevs []performance.Device
	for _, name := range ins {
		inDevs = append(inDevs, performance.Device{ID: name, PortName: name})
	}
	for _, name := range outs {
		outDevs = append(outDevs, performance.Device{ID: name, PortName: name})
	}
	dir := midi.NewDirectory(b)
	dir.SetDevices(inDevs, outDevs)
	return dir, outDevs, nil
}

func monitor(ctx context.Context, b midi.Backend, args []string) error {
	if len(args) < 1 {
		return fault.New("monitor needs an input port name")
	}
	dir := midi.NewDirectory(b)
	defer dir.Close()
	dir.SetHandler(func(dev *performance.Device, msg []byte) {
		fmt.Printf("[%s] %-14s % X  %s\n", time.Now().Format("15:04:05.000"), dev.ID, msg, gomidi.Message(msg).String())
	})
	dir.SetDevices([]performance.Device{{ID: args[0], PortName: args[0]}}, nil)
	if st := dir.InputDevices(); len(st) == 0 || !st[0].Bound() {
		return fault.Wrap(fault.New("no input port "+args[0]), ftag.With(ftag.NotFound))
	}
	fmt.Println("Monitoring, ctrl+c to stop")
	<-ctx.Done()
	return nil
}

func panicAll(b midi.Backend) error {
	dir, outs, err := bindAll(b)
	if err != nil {
		return err
	}
	defer dir.Close()
	dir.AllNotesOff()
	fmt.Printf("All notes off sent to %d outputs\n", len(outs))
	return nil
}

func play(ctx context.Context, b midi.Backend, args []string) error {
	if len(args) < 2 {
		return fault.New("play needs a file and an output port name")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	dir := midi.NewDirectory(b)
	defer dir.Close()
	dir.SetDevices(nil, []performance.Device{{ID: "out", PortName: args[1]}})
	if st := dir.OutputDevices(); !st[0].Bound() {
		return fault.Wrap(fault.New("no output port "+args[1]), ftag.With(ftag.NotFound))
	}

	// a local queue stands in for the engine's
	work := make(chan func(), 64)
	done := make(chan struct{})
	a := player.NewAdapter(player.Options{
		Name:   args[0],
		Direct: "out",
		Router: dir,
		Post:   func(f func()) { work <- f },
		OnIdle: func() { close(done) },
	})
	work <- func() {
		if err := a.Play(data); err != nil {
			fmt.Printf("Error: %v\n", err)
			close(done)
		} else if !a.IsPlaying() {
			close(done)
		}
	}

	fmt.Printf("Playing %s to %s, ctrl+c to stop\n", args[0], args[1])
	for {
		select {
		case f := <-work:
			f()
		case <-done:
			return nil
		case <-ctx.Done():
			a.Stop()
			return nil
		}
	}
}

func findLaunchpad(b midi.Backend) (midi.InPort, midi.OutPort, error) {
	ins, err := b.InPorts()
	if err != nil {
		return nil, nil, err
	}
	outs, err := b.OutPorts()
	if err != nil {
		return nil, nil, err
	}
	var in midi.InPort
	var out midi.OutPort
	for _, p := range ins {
		if strings.Contains(strings.ToLower(p.Name()), "launchpad") {
			in = p
			break
		}
	}
	for _, p := range outs {
		if strings.Contains(strings.ToLower(p.Name()), "launchpad") {
			out = p
			break
		}
	}
	if in == nil || out == nil {
		return nil, nil, fault.Wrap(fault.New("no Launchpad found"), ftag.With(ftag.NotFound))
	}
	return in, out, nil
}

func testLEDs(ctx context.Context, b midi.Backend) error {
	in, out, err := findLaunchpad(b)
	if err != nil {
		return err
	}
	lp, err := midi.NewLaunchpadController(in.Name(), in, out)
	if err != nil {
		return err
	}
	defer lp.Close()

	fmt.Println("Lighting up diagonal (green), press pads to see events...")
	var leds []midi.LEDUpdate
	for i := 0; i < 8; i++ {
		leds = append(leds, midi.LEDUpdate{Row: i, Col: i, Color: [3]uint8{0, 255, 0}})
	}
	if err := lp.SetLEDBatch(leds); err != nil {
		return err
	}

	for {
		select {
		case pad := <-lp.PadEvents():
			fmt.Printf("pad row=%d col=%d vel=%d\n", pad.Row, pad.Col, pad.Velocity)
		case <-ctx.Done():
			return nil
		}
	}
}

func pollDevices(ctx context.Context, b midi.Backend) {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect devices to test. Ctrl+C to exit.")

	dm := midi.NewDeviceManager(b, 2*time.Second, true)
	go dm.Run(ctx)
	for ev := range dm.Events() {
		ts := time.Now().Format("15:04:05")
		switch ev.Type {
		case midi.PortsChanged:
			ins, outs, _ := midi.PortNames(b)
			fmt.Printf("\n[%s] Device change detected!\n", ts)
			fmt.Printf("  Inputs: %v\n", ins)
			fmt.Printf("  Outputs: %v\n", outs)
		case midi.DeviceConnected:
			fmt.Printf("[%s]  -> Launchpad connected: %s\n", ts, ev.ID)
		case midi.DeviceDisconnected:
			fmt.Printf("[%s]  -> Launchpad disconnected: %s\n", ts, ev.ID)
		}
	}
}
