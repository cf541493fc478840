package browser

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleWatcher tracks in-flight requests of one page from network domain
// events and signals once no more than max requests have been pending for
// a continuous quiet interval. The interval is only measured once the
// watcher is armed after the load event.
type idleWatcher struct {
	max   int
	quiet time.Duration

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	timer    *time.Timer
	gen      uint64
	armed    bool

	idle chan struct{}
	once sync.Once
}

func newIdleWatcher(maxInflight int, quiet time.Duration) *idleWatcher {
	if maxInflight < 0 {
		maxInflight = 0
	}
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	return &idleWatcher{
		max:      maxInflight,
		quiet:    quiet,
		inflight: make(map[network.RequestID]struct{}),
		idle:     make(chan struct{}),
	}
}

// Idle is closed once the network has been quiet long enough.
func (w *idleWatcher) Idle() <-chan struct{} {
	return w.idle
}

// handle is registered with chromedp.ListenTarget.
func (w *idleWatcher) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		w.started(e.RequestID)
	case *network.EventLoadingFinished:
		w.finished(e.RequestID)
	case *network.EventLoadingFailed:
		w.finished(e.RequestID)
	}
}

func (w *idleWatcher) started(id network.RequestID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight[id] = struct{}{}
	w.reconcileLocked()
}

func (w *idleWatcher) finished(id network.RequestID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, id)
	w.reconcileLocked()
}

// arm is called once navigation returns. Quiet observed before it does not
// count, so the interval restarts here.
func (w *idleWatcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = true
	w.resetLocked()
	w.reconcileLocked()
}

// Inflight returns the number of pending requests.
func (w *idleWatcher) Inflight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inflight)
}

func (w *idleWatcher) reconcileLocked() {
	if len(w.inflight) > w.max {
		w.resetLocked()
		return
	}
	if !w.armed || w.timer != nil {
		return
	}
	gen := w.gen
	w.timer = time.AfterFunc(w.quiet, func() { w.fire(gen) })
}

func (w *idleWatcher) resetLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
		w.gen++
	}
}

func (w *idleWatcher) fire(gen uint64) {
	w.mu.Lock()
	ok := gen == w.gen && len(w.inflight) <= w.max
	w.mu.Unlock()
	if ok {
		w.once.Do(func() { close(w.idle) })
	}
}

// stop releases the pending timer.
func (w *idleWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
}
