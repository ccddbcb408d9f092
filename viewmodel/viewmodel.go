// Package viewmodel implements the four-state loading pattern shared by every screen:
// Initial, then Loading on an action, then Success or Error until the next action.
package viewmodel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/log"
)

type StateKind int

const (
	Initial StateKind = iota
	Loading
	Success
	Error
)

func (k StateKind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "initial"
	}
}

type State[T any] struct {
	Kind    StateKind
	Data    T
	Message string
}

// ErrBusy is returned by Run while a previous action is still loading.
var ErrBusy = errors.New("action already in progress")

// Connectivity is implemented by *netwatch.Watcher.
type Connectivity interface {
	Online() bool
}

const alertBuffer = 16

// Base holds what all view-models share: connectivity and the alert stream.
type Base struct {
	conn          Connectivity
	alertDuration time.Duration
	alerts        chan apperr.Alert
}

func NewBase(conn Connectivity, alertDuration time.Duration) *Base {
	return &Base{
		conn:          conn,
		alertDuration: alertDuration,
		alerts:        make(chan apperr.Alert, alertBuffer),
	}
}

func (b *Base) Online() bool {
	return b.conn == nil || b.conn.Online()
}

// Alerts delivers transient alerts for failed actions. Alerts are dropped when nobody reads them.
func (b *Base) Alerts() <-chan apperr.Alert {
	return b.alerts
}

func (b *Base) alert(err error) apperr.Alert {
	a := apperr.AlertFor(err, b.alertDuration)
	select {
	case b.alerts <- a:
	default:
	}
	return a
}

type ViewModel[T any] struct {
	base *Base

	mu     sync.Mutex
	state  State[T]
	nextID int
	subs   map[int]chan State[T]
}

func New[T any](base *Base) *ViewModel[T] {
	return &ViewModel[T]{base: base, subs: make(map[int]chan State[T])}
}

func (vm *ViewModel[T]) State() State[T] {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// States streams every state transition. Transitions that don't fit into the buffer are dropped.
func (vm *ViewModel[T]) States(buffer int) (<-chan State[T], func()) {
	ch := make(chan State[T], buffer)
	vm.mu.Lock()
	id := vm.nextID
	vm.nextID++
	vm.subs[id] = ch
	vm.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			vm.mu.Lock()
			delete(vm.subs, id)
			close(ch)
			vm.mu.Unlock()
		})
	}
}

// Run performs one user action. Offline, fn is not called and the state becomes Error with
// a network alert. Failures of fn become Error with the alert text.
func (vm *ViewModel[T]) Run(ctx context.Context, fn func(ctx context.Context) (T, error)) error {
	var zero T
	vm.mu.Lock()
	if vm.state.Kind == Loading {
		vm.mu.Unlock()
		return ErrBusy
	}
	if !vm.base.Online() {
		err := apperr.Wrap(apperr.Network, apperr.Network.DisplayText(), nil)
		a := vm.base.alert(err)
		vm.setLocked(State[T]{Kind: Error, Message: a.Text})
		vm.mu.Unlock()
		return err
	}
	vm.setLocked(State[T]{Kind: Loading})
	vm.mu.Unlock()

	data, err := fn(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		a := vm.base.alert(err)
		log.LoggerFromContext(ctx).Debug("action failed", slog.String("kind", a.Kind.String()), slog.String(log.ErrorMsgLogField, err.Error()))
		vm.setLocked(State[T]{Kind: Error, Data: zero, Message: a.Text})
		return err
	}
	vm.setLocked(State[T]{Kind: Success, Data: data})
	return nil
}

// Reset returns to Initial unless an action is loading.
func (vm *ViewModel[T]) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state.Kind != Loading {
		vm.setLocked(State[T]{})
	}
}

func (vm *ViewModel[T]) setLocked(s State[T]) {
	vm.state = s
	for _, ch := range vm.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
