package midi

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"solo-orchestra/debug"
)

// DeviceEvent is emitted when ports appear or disappear
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller // set for DeviceConnected
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
	// PortsChanged means the set of port names differs from the last scan
	PortsChanged
)

// DeviceManager polls a Backend for hot-plug changes and opens Launchpads
type DeviceManager struct {
	backend     Backend
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	launchpads  bool
	lastPorts   string
	log         *log.Logger
}

// NewDeviceManager creates a manager. When launchpads is false, Launchpad
// ports are treated like any other port.
func NewDeviceManager(backend Backend, pollRate time.Duration, launchpads bool) *DeviceManager {
	if pollRate <= 0 {
		pollRate = time.Second
	}
	return &DeviceManager{
		backend:     backend,
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    pollRate,
		launchpads:  launchpads,
		log:         debug.Logger("hotplug"),
	}
}

// Events returns a channel of device events. It is closed when Run returns.
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

func (dm *DeviceManager) emit(ctx context.Context, ev DeviceEvent) {
	select {
	case dm.events <- ev:
	case <-ctx.Done():
	}
}

func (dm *DeviceManager) scan(ctx context.Context) {
	ins, err := dm.backend.InPorts()
	if err != nil {
		// skip this scan; a hung driver is retried next tick
		dm.log.Warn("scan inputs", "err", err)
		return
	}
	outs, err := dm.backend.OutPorts()
	if err != nil {
		dm.log.Warn("scan outputs", "err", err)
		return
	}

	if sig := portSignature(ins, outs); sig != dm.lastPorts {
		first := dm.lastPorts == ""
		dm.lastPorts = sig
		if !first {
			dm.log.Info("ports changed", "inputs", len(ins), "outputs", len(outs))
			dm.emit(ctx, DeviceEvent{Type: PortsChanged})
		}
	}

	if !dm.launchpads {
		return
	}

	seen := make(map[string]bool)
	for _, in := range ins {
		if !isLaunchpad(in.Name()) {
			continue
		}
		id := in.Name()
		seen[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var out OutPort
		for _, op := range outs {
			if strings.EqualFold(op.Name(), id) {
				out = op
				break
			}
		}

		lp, err := NewLaunchpadController(id, in, out)
		if err != nil {
			dm.log.Warn("launchpad", "port", id, "err", err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = lp
		dm.mu.Unlock()

		dm.log.Info("launchpad connected", "port", id)
		dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: lp, ID: id})
	}

	dm.mu.Lock()
	var gone []string
	for id, c := range dm.controllers {
		if !seen[id] {
			c.Close()
			delete(dm.controllers, id)
			gone = append(gone, id)
		}
	}
	dm.mu.Unlock()

	for _, id := range gone {
		dm.log.Info("launchpad disconnected", "port", id)
		dm.emit(ctx, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// portSignature is order-independent so a driver that reorders ports does
// not look like a change
func portSignature(ins []InPort, outs []OutPort) string {
	names := make([]string, 0, len(ins)+len(outs)+1)
	for _, p := range ins {
		names = append(names, "i:"+p.Name())
	}
	for _, p := range outs {
		names = append(names, "o:"+p.Name())
	}
	slices.Sort(names)
	// never empty, so the first scan is distinguishable
	return "|" + strings.Join(names, "|")
}
