package player

import (
	"time"

	"github.com/charmbracelet/log"

	"solo-orchestra/debug"
	"solo-orchestra/ledger"
	"solo-orchestra/mapper"
	"solo-orchestra/performance"
)

// Options configures an Adapter
type Options struct {
	Name   string // used in log lines
	Rules  []performance.Rule
	Direct string // output device id used when Rules is empty
	Loop   bool

	Router mapper.Router
	Clock  Clock
	Parser Parser

	// Post runs f on the owning event loop. Every tick goes through it.
	Post func(f func())
	// OnIdle is called on the event loop whenever playback stops
	OnIdle func()
}

// Adapter plays one file through a rule list. Play, Stop and IsPlaying
// must be called from the goroutine that Post delivers to.
type Adapter struct {
	opts   Options
	mapper *mapper.Mapper
	ledger *ledger.Ledger
	log    *log.Logger

	playing bool
	gen     uint64
	seq     Sequence
	next    Event
	start   time.Time // start of the current pass
	timer   Timer
}

func NewAdapter(opts Options) *Adapter {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Parser == nil {
		opts.Parser = SMFParser{}
	}
	if opts.Post == nil {
		opts.Post = func(f func()) { f() }
	}
	return &Adapter{
		opts:   opts,
		mapper: mapper.New(opts.Router),
		ledger: ledger.New(),
		log:    debug.Logger("player").With("preset", opts.Name),
	}
}

// IsPlaying reports whether playback is running
func (a *Adapter) IsPlaying() bool {
	return a.playing
}

// Held returns the notes the adapter has started and not yet released
func (a *Adapter) Held() []ledger.Note {
	return a.ledger.Held()
}

// Play parses data and starts playback from the beginning. It is a no-op if
// already playing. An empty file leaves the adapter idle.
func (a *Adapter) Play(data []byte) error {
	if a.playing {
		return nil
	}
	seq, err := a.opts.Parser.Parse(data)
	if err != nil {
		return err
	}
	a.seq = seq
	return a.begin()
}

func (a *Adapter) begin() error {
	first, ok := a.seq.Next()
	if !ok {
		a.log.Debug("empty file")
		return nil
	}
	a.next = first
	a.playing = true
	a.gen++
	a.start = a.opts.Clock.Now()
	a.log.Info("play", "loop", a.opts.Loop)
	a.schedule()
	return nil
}

// Stop halts playback and releases every held note. It is idempotent.
func (a *Adapter) Stop() {
	if !a.playing {
		return
	}
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.flush()
	a.playing = false
	a.log.Info("stop")
	if a.opts.OnIdle != nil {
		a.opts.OnIdle()
	}
}

func (a *Adapter) elapsed() time.Duration {
	return a.opts.Clock.Now().Sub(a.start)
}

func (a *Adapter) schedule() {
	wait := a.next.At - a.elapsed()
	if wait < 0 {
		wait = 0
	}
	gen := a.gen
	a.timer = a.opts.Clock.AfterFunc(wait, func() {
		a.opts.Post(func() { a.tick(gen) })
	})
}

func (a *Adapter) tick(gen uint64) {
	if gen != a.gen || !a.playing {
		return
	}
	a.timer = nil

	now := a.elapsed()
	for a.next.At <= now {
		a.emit(a.next)
		ev, ok := a.seq.Next()
		if !ok {
			a.endOfStream()
			return
		}
		a.next = ev
	}
	debug.LogEvery(64, "player", "%s next event at %s", a.opts.Name, a.next.At)
	a.schedule()
}

func (a *Adapter) endOfStream() {
	last := a.next.At
	a.flush()
	// a pass with no length would spin
	if a.opts.Loop && last > 0 {
		a.seq.Rewind()
		if first, ok := a.seq.Next(); ok {
			a.next = first
			a.start = a.start.Add(last)
			a.schedule()
			return
		}
	}
	a.playing = false
	a.log.Info("finished")
	if a.opts.OnIdle != nil {
		a.opts.OnIdle()
	}
}

func (a *Adapter) emit(ev Event) {
	msg, ok := ev.Message()
	if !ok {
		return
	}
	a.ledger.Observe(msg)
	a.dispatch(msg)
}

func (a *Adapter) dispatch(msg []byte) {
	if len(a.opts.Rules) > 0 {
		a.mapper.Apply(nil, msg, a.opts.Rules)
		return
	}
	if a.opts.Direct == "" {
		return
	}
	if err := a.opts.Router.Send(a.opts.Direct, msg); err != nil {
		a.log.Debug("send failed", "dest", a.opts.Direct, "err", err)
	}
}

// flush sends a note-off for every held note through the same path the
// notes took
func (a *Adapter) flush() {
	for _, n := range a.ledger.Drain() {
		a.dispatch(n.Off())
	}
}
