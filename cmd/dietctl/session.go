package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/klipach/dietapp/apiclient"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/log"
	"github.com/klipach/dietapp/netwatch"
	"github.com/klipach/dietapp/preferences"
	"github.com/klipach/dietapp/viewmodel"
	"github.com/spf13/cobra"
)

const (
	defaultAPIURL = "http://localhost:8082"
	alertDuration = 3 * time.Second
	probeInterval = 10 * time.Second
)

type session struct {
	prefs   *preferences.Store
	apiURL  string
	client  *apiclient.Client
	watcher *netwatch.Watcher
	base    *viewmodel.Base
	bus     *eventbus.Bus
	out     io.Writer
}

func withSession(cmd *cobra.Command, run func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	path := dbPath
	if path == "" {
		var err error
		if path, err = preferences.DefaultPath(); err != nil {
			return err
		}
	}
	prefs, err := preferences.Open(path)
	if err != nil {
		return err
	}
	defer prefs.Close()

	u, err := resolveAPIURL(ctx, prefs)
	if err != nil {
		return err
	}
	token, _, err := prefs.Get(ctx, preferences.KeyToken)
	if err != nil {
		return err
	}
	addr, err := probeAddr(u)
	if err != nil {
		return err
	}
	// one probe is enough for a single command; long running ones start watcher.Run
	watcher := netwatch.New(addr, probeInterval)
	watcher.Check(ctx)

	s := &session{
		prefs:   prefs,
		apiURL:  u,
		client:  apiclient.New(u, token),
		watcher: watcher,
		base:    viewmodel.NewBase(watcher, alertDuration),
		bus:     eventbus.New(),
		out:     cmd.OutOrStdout(),
	}
	errOut := cmd.ErrOrStderr()
	s.bus.Subscribe(func(ctx context.Context, e eventbus.Event) {
		switch e.Kind {
		case eventbus.Logout:
			if err := prefs.Delete(ctx, preferences.KeyToken); err != nil {
				log.LoggerFromContext(ctx).Error("error while clearing token", slog.String(log.ErrorMsgLogField, err.Error()))
			}
			s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Navigate, Target: screenLogin})
		case eventbus.Navigate:
			if e.Target == screenLogin {
				fmt.Fprintln(errOut, loginHint)
			}
		}
	})
	return run(ctx, s)
}

const (
	screenLogin = "login"
	loginHint   = "Aby zalogować się ponownie użyj: dietctl login --token <ID token>"
)

func resolveAPIURL(ctx context.Context, prefs *preferences.Store) (string, error) {
	if apiURL != "" {
		return apiURL, nil
	}
	saved, ok, err := prefs.Get(ctx, preferences.KeyAPIURL)
	if err != nil {
		return "", err
	}
	if ok && saved != "" {
		return saved, nil
	}
	return defaultAPIURL, nil
}

// probeAddr is the host:port dialed to decide whether the API is reachable.
func probeAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid api url %q", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// view runs a fetch through a view-model. Refresh events re-run the fetch.
type view[T any] struct {
	s           *session
	vm          *viewmodel.ViewModel[T]
	fetch       func(ctx context.Context) (T, error)
	unsubscribe func()
}

func newView[T any](s *session, fetch func(ctx context.Context) (T, error)) *view[T] {
	v := &view[T]{s: s, vm: viewmodel.New[T](s.base), fetch: fetch}
	v.unsubscribe = s.bus.Subscribe(func(ctx context.Context, e eventbus.Event) {
		if e.Kind == eventbus.Refresh {
			_ = v.vm.Run(ctx, v.fetch)
		}
	})
	return v
}

func (v *view[T]) close() {
	v.unsubscribe()
}

func (v *view[T]) load(ctx context.Context) (T, error) {
	if err := v.vm.Run(ctx, v.fetch); errors.Is(err, viewmodel.ErrBusy) {
		var zero T
		return zero, err
	}
	return v.current(ctx)
}

// drainAlerts consumes pending alerts. An auth alert ends the session.
func (s *session) drainAlerts(ctx context.Context) (loggedOut bool) {
	for {
		select {
		case a := <-s.base.Alerts():
			if a.Kind == apperr.Auth && !loggedOut {
				loggedOut = true
				s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Logout})
			}
		default:
			return loggedOut
		}
	}
}

// current returns the latest state.
func (v *view[T]) current(ctx context.Context) (T, error) {
	v.s.drainAlerts(ctx)
	st := v.vm.State()
	if st.Kind == viewmodel.Error {
		return st.Data, errors.New(st.Message)
	}
	return st.Data, nil
}

func load[T any](ctx context.Context, s *session, fetch func(ctx context.Context) (T, error)) (T, error) {
	v := newView(s, fetch)
	defer v.close()
	return v.load(ctx)
}
