package midi

import (
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Sender writes one raw message to an open output
type Sender func(msg []byte) error

// InPort is an input port reported by a Backend
type InPort interface {
	Name() string
	// Listen delivers every inbound message to f until stop is called
	Listen(f func(msg []byte)) (stop func(), err error)
}

// OutPort is an output port reported by a Backend
type OutPort interface {
	Name() string
	Open() (Sender, error)
}

// Backend enumerates the ports of a MIDI driver
type Backend interface {
	InPorts() ([]InPort, error)
	OutPorts() ([]OutPort, error)
}

// ScanTimeout bounds a port scan. CoreMIDI can hang; when it does run:
// sudo killall coreaudiod midiserver
const ScanTimeout = 3 * time.Second

// DriverBackend enumerates ports of the registered gomidi driver. The
// driver itself is registered by importing it (rtmididrv) in main.
type DriverBackend struct {
	timeout time.Duration
}

func NewDriverBackend() *DriverBackend {
	return &DriverBackend{timeout: ScanTimeout}
}

type portsResult struct {
	ins  []drivers.In
	outs []drivers.Out
}

func (b *DriverBackend) scan() (portsResult, error) {
	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(b.timeout):
		return portsResult{}, fault.Wrap(fault.New("port scan timed out"), ftag.With(ftag.Internal), fmsg.With("midi backend"))
	}
}

func (b *DriverBackend) InPorts() ([]InPort, error) {
	r, err := b.scan()
	if err != nil {
		return nil, err
	}
	ports := make([]InPort, len(r.ins))
	for i, in := range r.ins {
		ports[i] = driverIn{in}
	}
	return ports, nil
}

func (b *DriverBackend) OutPorts() ([]OutPort, error) {
	r, err := b.scan()
	if err != nil {
		return nil, err
	}
	ports := make([]OutPort, len(r.outs))
	for i, out := range r.outs {
		ports[i] = driverOut{out}
	}
	return ports, nil
}

type driverIn struct {
	port drivers.In
}

func (p driverIn) Name() string { return p.port.String() }

func (p driverIn) Listen(f func(msg []byte)) (func(), error) {
	stop, err := gomidi.ListenTo(p.port, func(msg gomidi.Message, timestampms int32) {
		f(msg)
	}, gomidi.UseSysEx())
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("open input "+p.port.String()))
	}
	return stop, nil
}

type driverOut struct {
	port drivers.Out
}

func (p driverOut) Name() string { return p.port.String() }

func (p driverOut) Open() (Sender, error) {
	send, err := gomidi.SendTo(p.port)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("open output "+p.port.String()))
	}
	return func(msg []byte) error {
		return send(gomidi.Message(msg))
	}, nil
}

// PortNames lists the names of ins and outs, in backend order
func PortNames(b Backend) (ins, outs []string, err error) {
	inPorts, err := b.InPorts()
	if err != nil {
		return nil, nil, err
	}
	outPorts, err := b.OutPorts()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range inPorts {
		ins = append(ins, p.Name())
	}
	for _, p := range outPorts {
		outs = append(outs, p.Name())
	}
	return ins, outs, nil
}
