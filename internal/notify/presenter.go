package notify

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind styles a message bubble.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

const (
	DefaultDisplay = 3000 * time.Millisecond
	DefaultFade    = 300 * time.Millisecond
)

// ErrClosed is returned when queueing on a closed presenter.
var ErrClosed = errors.New("presenter closed")

// Message is one visible bubble.
type Message struct {
	ID        uint64    `json:"id"`
	Text      string    `json:"text"`
	Kind      Kind      `json:"kind"`
	Fading    bool      `json:"fading"`
	CreatedAt time.Time `json:"createdAt"`
}

// Observer receives the visible bubbles after every change. Calls are
// serialised and never go back to an older list; an observer must not call
// into the presenter.
type Observer func(active []Message)

// Options tune bubble timing. Zero values use the defaults.
type Options struct {
	Display time.Duration
	Fade    time.Duration
}

type pendingMessage struct {
	text string
	kind Kind
}

// Presenter shows transient status bubbles. Show displays immediately and
// may stack; Queue shows one bubble at a time, each fully removed before the
// next appears.
type Presenter struct {
	display time.Duration
	fade    time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	nextID    uint64
	active    []Message
	pending   []pendingMessage
	timers    map[*time.Timer]struct{}
	observers map[int]Observer
	nextObs   int
	version   uint64
	closed    bool

	// notifyMu orders deliveries; delivered is the last version handed out.
	notifyMu  sync.Mutex
	delivered uint64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewPresenter starts a presenter and its queue worker.
func NewPresenter(opts Options, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Display <= 0 {
		opts.Display = DefaultDisplay
	}
	if opts.Fade <= 0 {
		opts.Fade = DefaultFade
	}

	p := &Presenter{
		display:   opts.Display,
		fade:      opts.Fade,
		logger:    logger,
		now:       time.Now,
		timers:    make(map[*time.Timer]struct{}),
		observers: make(map[int]Observer),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()
	return p
}

// Show displays a bubble right away and schedules its fade and removal.
func (p *Presenter) Show(text string, kind Kind) (Message, error) {
	msg, ok := p.add(text, kind)
	if !ok {
		return Message{}, ErrClosed
	}

	p.after(p.display, func() {
		p.setFading(msg.ID)
		p.after(p.fade, func() { p.remove(msg.ID) })
	})
	return msg, nil
}

// Queue appends a bubble to the serialised queue.
func (p *Presenter) Queue(text string, kind Kind) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.pending = append(p.pending, pendingMessage{text: text, kind: kind})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Active returns the visible bubbles, oldest first.
func (p *Presenter) Active() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers an observer and returns its cancel function.
func (p *Presenter) Subscribe(observer Observer) func() {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = observer
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

// Close stops every timer and the queue worker, dropping pending and visible bubbles.
func (p *Presenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.pending = nil
	p.active = nil
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Presenter) run() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		if len(p.pending) == 0 {
			p.mu.Unlock()
			select {
			case <-p.wake:
				continue
			case <-p.done:
				return
			}
		}
		next := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()

		if !p.present(next) {
			return
		}
	}
}

func (p *Presenter) present(m pendingMessage) bool {
	msg, ok := p.add(m.text, m.kind)
	if !ok || !p.sleep(p.display) {
		return false
	}
	p.setFading(msg.ID)
	if !p.sleep(p.fade) {
		return false
	}
	p.remove(msg.ID)
	return true
}

func (p *Presenter) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.done:
		return false
	}
}

func (p *Presenter) after(d time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		delete(p.timers, timer)
		p.mu.Unlock()
		fn()
	})
	p.timers[timer] = struct{}{}
}

func (p *Presenter) add(text string, kind Kind) (Message, bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Message{}, false
	}
	p.nextID++
	msg := Message{ID: p.nextID, Text: text, Kind: kind, CreatedAt: p.now()}
	p.active = append(p.active, msg)
	c := p.changeLocked()
	p.mu.Unlock()

	p.logger.Info("message shown", zap.Uint64("id", msg.ID), zap.String("kind", string(kind)), zap.String("text", text))
	p.deliver(c)
	return msg, true
}

func (p *Presenter) setFading(id uint64) {
	p.mu.Lock()
	found := false
	for i := range p.active {
		if p.active[i].ID == id {
			p.active[i].Fading = true
			found = true
			break
		}
	}
	if !found || p.closed {
		p.mu.Unlock()
		return
	}
	c := p.changeLocked()
	p.mu.Unlock()

	p.deliver(c)
}

func (p *Presenter) remove(id uint64) {
	p.mu.Lock()
	index := -1
	for i := range p.active {
		if p.active[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 || p.closed {
		p.mu.Unlock()
		return
	}
	p.active = append(p.active[:index], p.active[index+1:]...)
	c := p.changeLocked()
	p.mu.Unlock()

	p.deliver(c)
}

func (p *Presenter) snapshotLocked() []Message {
	out := make([]Message, len(p.active))
	copy(out, p.active)
	return out
}

type change struct {
	version   uint64
	snapshot  []Message
	observers []Observer
}

func (p *Presenter) changeLocked() change {
	p.version++
	observers := make([]Observer, 0, len(p.observers))
	for _, o := range p.observers {
		observers = append(observers, o)
	}
	return change{version: p.version, snapshot: p.snapshotLocked(), observers: observers}
}

// deliver hands a change to its observers unless a newer one already went out.
func (p *Presenter) deliver(c change) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if c.version <= p.delivered {
		return
	}
	p.delivered = c.version
	for _, o := range c.observers {
		o(c.snapshot)
	}
}
