// Package typing converts raw keystrokes into low-frequency typing
// signals on the gateway.
package typing

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Signaler is the outbound half of the gateway the debouncer needs.
type Signaler interface {
	SendTyping(conversationID string, isTyping bool) error
}

// typingWindow is one open typing window. gen counts the keystrokes that armed
// it: an expiry callback carries the generation it was armed with, and a
// mismatch means a newer keystroke owns the window. Timer.Stop cannot
// guarantee a queued callback is cancelled, so the generation check is
// what keeps a late callback from emitting an early typing:false.
type typingWindow struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer rate-limits typing traffic per conversation: the first
// keystroke emits typing:true immediately, further keystrokes inside the
// window only push the trailing typing:false out. When the window elapses
// with no keystroke, typing:false is emitted once.
//
// Switching conversations does not emit typing:false for the previous
// one; its window keeps running and the timeout is the sole clearing
// mechanism.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	signaler Signaler
	windows  map[string]*typingWindow
	log      zerolog.Logger
}

// NewDebouncer creates a debouncer with the given silence window.
func NewDebouncer(signaler Signaler, window time.Duration, log zerolog.Logger) *Debouncer {
	return &Debouncer{
		window:   window,
		signaler: signaler,
		windows:  make(map[string]*typingWindow),
		log:      log.With().Str("component", "typing-debouncer").Logger(),
	}
}

// Keystroke records one keystroke in a conversation's input.
func (d *Debouncer) Keystroke(conversationID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w, ok := d.windows[conversationID]; ok {
		w.timer.Stop()
		w.gen++
		gen := w.gen
		w.timer = time.AfterFunc(d.window, func() {
			d.expire(conversationID, gen)
		})
		return
	}

	if err := d.signaler.SendTyping(conversationID, true); err != nil {
		// Signal loss is non-fatal; the entry still arms so the stop
		// signal pairs with any start the gateway did deliver.
		d.log.Debug().Err(err).Str("conversation", conversationID).Msg("typing start signal failed")
	}
	d.windows[conversationID] = &typingWindow{
		gen: 1,
		timer: time.AfterFunc(d.window, func() {
			d.expire(conversationID, 1)
		}),
	}
}

// expire fires when a conversation's window elapses without a keystroke.
// Only the callback matching the window's current generation may close it.
func (d *Debouncer) expire(conversationID string, gen uint64) {
	d.mu.Lock()
	w, ok := d.windows[conversationID]
	if !ok || w.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.windows, conversationID)
	d.mu.Unlock()

	if err := d.signaler.SendTyping(conversationID, false); err != nil {
		d.log.Debug().Err(err).Str("conversation", conversationID).Msg("typing stop signal failed")
	}
}

// Active reports whether a typing window is currently open for a
// conversation.
func (d *Debouncer) Active(conversationID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.windows[conversationID]
	return ok
}

// Stop cancels all open windows without emitting stop signals. Used on
// teardown; the gateway disconnect clears server-side typing state.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, w := range d.windows {
		w.timer.Stop()
		delete(d.windows, id)
	}
}
