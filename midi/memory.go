package midi

import (
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/ftag"
)

// MemoryBackend is an in-process driver with virtual ports. It stands in
// when no hardware driver can be opened, and in tests.
type MemoryBackend struct {
	mu      sync.Mutex
	ins     []*MemoryIn
	outs    []*MemoryOut
	failing bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) InPorts() ([]InPort, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return nil, fault.Wrap(fault.New("backend unavailable"), ftag.With(ftag.Internal))
	}
	ports := make([]InPort, len(b.ins))
	for i, p := range b.ins {
		ports[i] = p
	}
	return ports, nil
}

func (b *MemoryBackend) OutPorts() ([]OutPort, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return nil, fault.Wrap(fault.New("backend unavailable"), ftag.With(ftag.Internal))
	}
	ports := make([]OutPort, len(b.outs))
	for i, p := range b.outs {
		ports[i] = p
	}
	return ports, nil
}

// SetFailing makes every scan return an error, like a hung driver
func (b *MemoryBackend) SetFailing(failing bool) {
	b.mu.Lock()
	b.failing = failing
	b.mu.Unlock()
}

func (b *MemoryBackend) AddIn(name string) *MemoryIn {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &MemoryIn{name: name, listeners: map[int]func([]byte){}}
	b.ins = append(b.ins, p)
	return p
}

func (b *MemoryBackend) AddOut(name string) *MemoryOut {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &MemoryOut{name: name}
	b.outs = append(b.outs, p)
	return p
}

func (b *MemoryBackend) RemoveIn(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.ins {
		if p.name == name {
			b.ins = append(b.ins[:i], b.ins[i+1:]...)
			return
		}
	}
}

func (b *MemoryBackend) RemoveOut(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.outs {
		if p.name == name {
			b.outs = append(b.outs[:i], b.outs[i+1:]...)
			return
		}
	}
}

// MemoryIn is a virtual input; Deliver injects a message
type MemoryIn struct {
	name string

	mu        sync.Mutex
	listeners map[int]func([]byte)
	nextID    int
}

func (p *MemoryIn) Name() string { return p.name }

func (p *MemoryIn) Listen(f func([]byte)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = f
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}, nil
}

// Deliver runs every listener with msg on the calling goroutine
func (p *MemoryIn) Deliver(msg []byte) {
	p.mu.Lock()
	fs := make([]func([]byte), 0, len(p.listeners))
	for _, f := range p.listeners {
		fs = append(fs, f)
	}
	p.mu.Unlock()
	for _, f := range fs {
		f(msg)
	}
}

// Listening returns the number of active listeners
func (p *MemoryIn) Listening() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// MemoryOut is a virtual output that records what it is sent
type MemoryOut struct {
	name string

	mu    sync.Mutex
	opens int
	sent  [][]byte
}

func (p *MemoryOut) Name() string { return p.name }

func (p *MemoryOut) Open() (Sender, error) {
	p.mu.Lock()
	p.opens++
	p.mu.Unlock()
	return func(msg []byte) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.sent = append(p.sent, append([]byte(nil), msg...))
		return nil
	}, nil
}

// Messages returns a copy of everything sent so far
func (p *MemoryOut) Messages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.sent...)
}

// Reset forgets recorded messages
func (p *MemoryOut) Reset() {
	p.mu.Lock()
	p.sent = nil
	p.mu.Unlock()
}

// Opens returns how many times the port was opened
func (p *MemoryOut) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}
