// Package netwatch observes network availability by probing a TCP address.
package netwatch

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/klipach/dietapp/log"
)

const DefaultTimeout = 3 * time.Second

type Watcher struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	dialer   *net.Dialer

	mu     sync.RWMutex
	online bool
	known  bool
	nextID int
	subs   map[int]chan bool
}

// New creates a watcher probing addr (host:port) every interval. It reports offline
// until the first probe completes.
func New(addr string, interval time.Duration) *Watcher {
	return &Watcher{
		addr:     addr,
		interval: interval,
		timeout:  DefaultTimeout,
		dialer:   &net.Dialer{},
		subs:     make(map[int]chan bool),
	}
}

func (w *Watcher) Online() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.online
}

// Changes streams availability changes. Updates that don't fit into the buffer are dropped;
// Online always has the latest value.
func (w *Watcher) Changes(buffer int) (<-chan bool, func()) {
	ch := make(chan bool, buffer)
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			close(ch)
			w.mu.Unlock()
		})
	}
}

// Check probes once and records the result.
func (w *Watcher) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	conn, err := w.dialer.DialContext(ctx, "tcp", w.addr)
	online := err == nil
	if online {
		_ = conn.Close()
	} else {
		log.LoggerFromContext(ctx).Debug("connectivity probe failed", slog.String("addr", w.addr), slog.String(log.ErrorMsgLogField, err.Error()))
	}
	w.set(online)
	return online
}

// Run probes until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.Check(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

func (w *Watcher) set(online bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.known && w.online == online {
		return
	}
	w.known = true
	w.online = online
	for _, ch := range w.subs {
		select {
		case ch <- online:
		default:
		}
	}
}
