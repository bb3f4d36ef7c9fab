package provider

import (
	"context"
	"slices"
	"sync"
	"time"
)

// snapshot is the state watched for change events.
type snapshot struct {
	chainID  string
	accounts []string
}

// pollFunc reads the current chain id and exposed accounts.
type pollFunc func(ctx context.Context) (snapshot, error)

// events keeps listeners and, while any are registered, polls the node for
// chain and account changes.
type events struct {
	mu        sync.Mutex
	listeners map[string][]Listener
	interval  time.Duration
	poll      pollFunc
	logger    Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func newEvents(interval time.Duration, poll pollFunc, logger Logger) *events {
	if logger == nil {
		logger = nopLogger{}
	}
	return &events{
		listeners: make(map[string][]Listener),
		interval:  interval,
		poll:      poll,
		logger:    logger,
	}
}

// On registers listener for event and starts the watcher if needed.
func (e *events) On(event string, listener Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[event] = append(e.listeners[event], listener)
	if e.cancel == nil && e.interval > 0 && e.poll != nil {
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		e.done = make(chan struct{})
		go e.watch(ctx, e.done)
	}
}

// RemoveAllListeners drops every listener for event. The watcher stops once
// no listeners remain. Safe to call from inside a listener.
func (e *events) RemoveAllListeners(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.listeners, event)
	if len(e.listeners) == 0 && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Close removes all listeners and waits for the watcher to exit.
func (e *events) Close() {
	e.mu.Lock()
	clear(e.listeners)
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// emit calls the listeners registered for event at the time of the call.
func (e *events) emit(event string, payload any) {
	e.mu.Lock()
	listeners := slices.Clone(e.listeners[event])
	e.mu.Unlock()

	for _, l := range listeners {
		l(payload)
	}
}

func (e *events) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	last, err := e.poll(ctx)
	if err != nil {
		e.logger.Debug("change watcher: initial poll failed: %v", err)
	}
	primed := err == nil

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := e.poll(ctx)
		if err != nil {
			if ctx.Err() == nil {
				e.logger.Debug("change watcher: poll failed: %v", err)
			}
			continue
		}
		if !primed {
			last, primed = current, true
			continue
		}

		chainChanged := current.chainID != last.chainID
		accountsChanged := !slices.Equal(current.accounts, last.accounts)
		last = current

		if ctx.Err() != nil {
			return
		}
		if chainChanged {
			e.logger.Debug("change watcher: chain changed to %s", current.chainID)
			e.emit(EventChainChanged, current.chainID)
		}
		if accountsChanged && ctx.Err() == nil {
			e.logger.Debug("change watcher: accounts changed to %v", current.accounts)
			e.emit(EventAccountsChanged, slices.Clone(current.accounts))
		}
	}
}
