package livereload

import "sync"

const defaultSubscriberBuffer = 16

// Hub fans messages out to websocket subscribers. Slow subscribers miss
// messages rather than block the broadcaster.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan Message
	nextID      int
	buildID     string
	closed      bool
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]chan Message)}
}

// Subscribe returns a message channel and a cancel func that closes it.
func (hub *Hub) Subscribe() (<-chan Message, func()) {
	if hub == nil {
		ch := make(chan Message)
		close(ch)
		return ch, func() {}
	}
	ch := make(chan Message, defaultSubscriberBuffer)
	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	hub.nextID++
	id := hub.nextID
	hub.subscribers[id] = ch
	hub.mu.Unlock()

	cancel := func() {
		hub.mu.Lock()
		if existing, ok := hub.subscribers[id]; ok {
			delete(hub.subscribers, id)
			close(existing)
		}
		hub.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers message to every subscriber and remembers the latest
// build id for clients that connect later.
func (hub *Hub) Broadcast(message Message) {
	if hub == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		return
	}
	if message.BuildID != "" {
		hub.buildID = message.BuildID
	}
	for _, subscriber := range hub.subscribers {
		select {
		case subscriber <- message:
		default:
		}
	}
}

// BuildID returns the id of the last broadcast build.
func (hub *Hub) BuildID() string {
	if hub == nil {
		return ""
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.buildID
}

// SetBuildID records a build that finished before any client connected.
func (hub *Hub) SetBuildID(id string) {
	if hub == nil {
		return
	}
	hub.mu.Lock()
	hub.buildID = id
	hub.mu.Unlock()
}

func (hub *Hub) Subscribers() int {
	if hub == nil {
		return 0
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscribers)
}

// Close closes every subscriber channel. Later broadcasts are dropped.
func (hub *Hub) Close() {
	if hub == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		return
	}
	hub.closed = true
	for id, subscriber := range hub.subscribers {
		delete(hub.subscribers, id)
		close(subscriber)
	}
}
