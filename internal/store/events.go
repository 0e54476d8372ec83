package store

import "sync"

// subscriberBuffer bounds how far a slow subscriber may lag.
const subscriberBuffer = 64

// broker fans committed change sets out to subscribers. Callers publish
// while holding the store's write lock, so every subscriber sees change
// sets in commit order.
type broker struct {
	mu   sync.Mutex
	subs map[int]chan ChangeSet
	next int
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan ChangeSet)}
}

func (b *broker) subscribe() (<-chan ChangeSet, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan ChangeSet, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// publish never blocks. When a subscriber's buffer is full the oldest
// pending change set is dropped so the newest one is always delivered.
func (b *broker) publish(cs ChangeSet) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- cs:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cs:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
