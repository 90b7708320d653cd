// ABOUTME: Change notifications for board views, used by the SSE endpoint and the TUI.
// ABOUTME: Each subscriber holds at most one pending view; a slow reader only ever sees the newest.
package board

import "sync"

// Subscribe returns a channel that receives every newly published view and a
// cancel func that releases it. The current view is delivered immediately.
func (b *Board) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	ch <- b.View()

	b.subsMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subsMu.Lock()
			delete(b.subs, id)
			b.subsMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Board) Subscribers() int {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	return len(b.subs)
}

// broadcast replaces any undelivered view with v so senders never block.
func (b *Board) broadcast(v View) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
