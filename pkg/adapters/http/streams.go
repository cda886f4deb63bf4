package http

import (
	"log/slog"
	"sync"
)

// streamBuffer is how many events a slow subscriber may lag behind.
const streamBuffer = 16

// StreamManager fans session events out to SSE subscribers.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // handle -> set of channels
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a channel for handle. The returned func unsubscribes
// and is safe to call after Close.
func (sm *StreamManager) Subscribe(handle string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, streamBuffer)
	if _, ok := sm.subscribers[handle]; !ok {
		sm.subscribers[handle] = make(map[chan string]struct{})
	}
	sm.subscribers[handle][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		subs, ok := sm.subscribers[handle]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(sm.subscribers, handle)
		}
	}
}

// Broadcast sends msg to every subscriber of handle, dropping it for
// subscribers whose buffer is full.
func (sm *StreamManager) Broadcast(handle string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[handle] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "handle", handle)
		}
	}
}

// Close ends every stream of handle.
func (sm *StreamManager) Close(handle string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range sm.subscribers[handle] {
		close(ch)
	}
	delete(sm.subscribers, handle)
}

// Subscribers returns how many streams handle has.
func (sm *StreamManager) Subscribers(handle string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[handle])
}
