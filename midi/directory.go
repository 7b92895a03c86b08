package midi

import (
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"

	"solo-orchestra/debug"
	"solo-orchestra/performance"
)

// Handler receives messages from bound inputs. It runs on the driver's
// goroutine and must hand work off quickly.
type Handler func(dev *performance.Device, msg []byte)

// DeviceStatus reports how a logical device resolved against the ports
type DeviceStatus struct {
	Device performance.Device
	Port   string // resolved port name, "" if unbound
}

func (s DeviceStatus) Bound() bool { return s.Port != "" }

type inBinding struct {
	dev  performance.Device
	port InPort
	stop func()
}

type outBinding struct {
	dev  performance.Device
	port OutPort
	send Sender
}

// a table's maps are fixed once it is published
type table struct {
	inputs  []*inBinding
	outputs []*outBinding
	inByID  map[string]*inBinding
	outByID map[string]*outBinding
}

func emptyTable() *table {
	return &table{
		inByID:  map[string]*inBinding{},
		outByID: map[string]*outBinding{},
	}
}

// Directory resolves logical devices to live ports
type Directory struct {
	backend Backend
	log     *log.Logger

	mu      sync.RWMutex
	tbl     *table
	handler Handler

	// opened outputs by port name, kept across SetDevices
	senders   map[string]Sender
	sendersMu sync.RWMutex
}

// NewDirectory returns an empty directory. A nil backend never binds
// anything.
func NewDirectory(backend Backend) *Directory {
	return &Directory{
		backend: backend,
		log:     debug.Logger("devices"),
		tbl:     emptyTable(),
		senders: make(map[string]Sender),
	}
}

// SetHandler installs the receiver for inbound messages
func (d *Directory) SetHandler(h Handler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

func (d *Directory) current() *table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tbl
}

// SetDevices rebinds the directory to the given logical devices. The new
// table is fully built before it replaces the old one.
func (d *Directory) SetDevices(inputs, outputs []performance.Device) {
	var inPorts []InPort
	var outPorts []OutPort
	if d.backend != nil {
		var err error
		if inPorts, err = d.backend.InPorts(); err != nil {
			d.log.Warn("list inputs", "err", err)
		}
		if outPorts, err = d.backend.OutPorts(); err != nil {
			d.log.Warn("list outputs", "err", err)
		} else {
			d.pruneSenders(outPorts)
		}
	}

	next := emptyTable()
	for _, dev := range inputs {
		b := &inBinding{dev: dev, port: findIn(inPorts, dev.PortName)}
		if b.port == nil {
			d.log.Warn("input not found", "device", dev.ID, "port", dev.PortName)
		}
		next.inputs = append(next.inputs, b)
		if _, dup := next.inByID[dev.ID]; !dup {
			next.inByID[dev.ID] = b
		}
	}
	for _, dev := range outputs {
		b := &outBinding{dev: dev, port: findOut(outPorts, dev.PortName)}
		if b.port == nil {
			d.log.Warn("output not found", "device", dev.ID, "port", dev.PortName)
		} else {
			b.send = d.getSender(b.port)
		}
		next.outputs = append(next.outputs, b)
		if _, dup := next.outByID[dev.ID]; !dup {
			next.outByID[dev.ID] = b
		}
	}

	d.mu.Lock()
	prev := d.tbl
	d.tbl = next
	d.mu.Unlock()

	for _, b := range prev.inputs {
		if b.stop != nil {
			b.stop()
		}
	}
	for _, b := range next.inputs {
		if b.port == nil {
			continue
		}
		b.stop = d.listen(next, b)
	}

	d.log.Info("devices bound", "inputs", len(next.inputs), "outputs", len(next.outputs))
}

// listen starts delivery for one input. Messages that arrive after the
// table has been replaced are dropped.
func (d *Directory) listen(tbl *table, b *inBinding) func() {
	dev := b.dev
	stop, err := b.port.Listen(func(msg []byte) {
		d.mu.RLock()
		live := d.tbl == tbl
		h := d.handler
		d.mu.RUnlock()
		if !live || h == nil {
			return
		}
		h(&dev, msg)
	})
	if err != nil {
		d.log.Warn("listen failed", "device", dev.ID, "err", err)
		return nil
	}
	return stop
}

// getSender returns a sender for port, opening it on first use
func (d *Directory) getSender(port OutPort) Sender {
	name := port.Name()

	d.sendersMu.RLock()
	if s, ok := d.senders[name]; ok {
		d.sendersMu.RUnlock()
		return s
	}
	d.sendersMu.RUnlock()

	d.sendersMu.Lock()
	defer d.sendersMu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := d.senders[name]; ok {
		return s
	}
	s, err := port.Open()
	if err != nil {
		d.log.Warn("open output", "port", name, "err", err)
		return nil
	}
	d.senders[name] = s
	return s
}

// pruneSenders forgets senders for ports that have gone away, so a
// reconnected port is opened afresh
func (d *Directory) pruneSenders(ports []OutPort) {
	present := make(map[string]bool, len(ports))
	for _, p := range ports {
		present[p.Name()] = true
	}
	d.sendersMu.Lock()
	defer d.sendersMu.Unlock()
	for name := range d.senders {
		if !present[name] {
			delete(d.senders, name)
		}
	}
}

func findIn(ports []InPort, name string) InPort {
	for _, p := range ports {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func findOut(ports []OutPort, name string) OutPort {
	for _, p := range ports {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// FindIn returns the first input port named name
func (d *Directory) FindIn(name string) (InPort, bool) {
	if d.backend == nil {
		return nil, false
	}
	ports, err := d.backend.InPorts()
	if err != nil {
		d.log.Warn("list inputs", "err", err)
		return nil, false
	}
	p := findIn(ports, name)
	return p, p != nil
}

// FindOut returns the first output port named name
func (d *Directory) FindOut(name string) (OutPort, bool) {
	if d.backend == nil {
		return nil, false
	}
	ports, err := d.backend.OutPorts()
	if err != nil {
		d.log.Warn("list outputs", "err", err)
		return nil, false
	}
	p := findOut(ports, name)
	return p, p != nil
}

// ListPorts returns the names of every port the backend reports
func (d *Directory) ListPorts() (ins, outs []string, err error) {
	if d.backend == nil {
		return nil, nil, nil
	}
	return PortNames(d.backend)
}

// InputDevices lists the logical inputs and how they resolved
func (d *Directory) InputDevices() []DeviceStatus {
	tbl := d.current()
	out := make([]DeviceStatus, len(tbl.inputs))
	for i, b := range tbl.inputs {
		out[i] = DeviceStatus{Device: b.dev}
		if b.port != nil {
			out[i].Port = b.port.Name()
		}
	}
	return out
}

// OutputDevices lists the logical outputs and how they resolved
func (d *Directory) OutputDevices() []DeviceStatus {
	tbl := d.current()
	out := make([]DeviceStatus, len(tbl.outputs))
	for i, b := range tbl.outputs {
		out[i] = DeviceStatus{Device: b.dev}
		if b.send != nil {
			out[i].Port = b.port.Name()
		}
	}
	return out
}

// Input returns the logical input with the given id
func (d *Directory) Input(id string) (*performance.Device, bool) {
	b, ok := d.current().inByID[id]
	if !ok {
		return nil, false
	}
	dev := b.dev
	return &dev, true
}

// Output returns the logical output with the given id, bound or not
func (d *Directory) Output(id string) (*performance.Device, bool) {
	b, ok := d.current().outByID[id]
	if !ok {
		return nil, false
	}
	dev := b.dev
	return &dev, true
}

// Send delivers msg to the output bound to deviceID
func (d *Directory) Send(deviceID string, msg []byte) error {
	b, ok := d.current().outByID[deviceID]
	if !ok {
		return fault.Wrap(fault.New("unknown output "+deviceID), ftag.With(ftag.NotFound))
	}
	if b.send == nil {
		return fault.Wrap(fault.New("output "+deviceID+" is not connected"), ftag.With(ftag.NotFound))
	}
	return b.send(msg)
}

// AllNotesOff sends controller 123 on every channel of every bound output
func (d *Directory) AllNotesOff() {
	tbl := d.current()
	for _, b := range tbl.outputs {
		if b.send == nil {
			continue
		}
		for ch := uint8(0); ch < 16; ch++ {
			if err := b.send(gomidi.ControlChange(ch, 123, 0)); err != nil {
				d.log.Warn("all notes off", "device", b.dev.ID, "err", err)
				break
			}
		}
	}
	d.log.Info("all notes off", "outputs", len(tbl.outputs))
}

// Close stops every input listener
func (d *Directory) Close() {
	d.mu.Lock()
	prev := d.tbl
	d.tbl = emptyTable()
	d.mu.Unlock()
	for _, b := range prev.inputs {
		if b.stop != nil {
			b.stop()
		}
	}
}
