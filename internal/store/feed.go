package store

import (
	gosync "sync"
)

// feed fans snapshots out to live-query subscribers, grouped by owner.
// Each subscriber channel holds at most one pending snapshot: a newer
// snapshot replaces an unread older one, so a slow reader only ever skips
// to the latest state and never sees them out of order.
type feed struct {
	mu   gosync.Mutex
	subs map[string]map[chan Snapshot]struct{}
}

func newFeed() *feed {
	return &feed{subs: make(map[string]map[chan Snapshot]struct{})}
}

// add registers a subscriber for owner and returns its channel.
func (f *feed) add(owner string) chan Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if f.subs[owner] == nil {
		f.subs[owner] = make(map[chan Snapshot]struct{})
	}
	f.subs[owner][ch] = struct{}{}
	return ch
}

// remove unregisters and closes ch.
func (f *feed) remove(owner string, ch chan Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set, ok := f.subs[owner]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(f.subs, owner)
	}
	close(ch)
}

// watched reports whether owner has any subscriber.
func (f *feed) watched(owner string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[owner]) > 0
}

// publish delivers snap to every subscriber of owner.
func (f *feed) publish(owner string, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs[owner] {
		deliver(ch, snap)
	}
}

// publishTo delivers snap to a single subscriber if it is still registered.
func (f *feed) publishTo(owner string, ch chan Snapshot, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[owner][ch]; ok {
		deliver(ch, snap)
	}
}

// closeAll closes every subscriber channel.
func (f *feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for owner, set := range f.subs {
		for ch := range set {
			close(ch)
		}
		delete(f.subs, owner)
	}
}

// deliver replaces any unread snapshot in ch with snap. The caller must be
// the only sender on ch (feed methods hold f.mu), so nothing refills the
// slot between drain and send.
func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
