// Package guard decides whether a screen may be shown for the current
// session or where the user should be sent instead. Guards hold no state;
// they are pure functions of models.AuthState.
package guard

import (
	"sync"

	"github.com/docscrib/docscrib-cli/internal/client/models"
)

// Entry points of the guest and protected areas.
const (
	LoginPath     = "/v2/login"
	DashboardPath = "/dashboard/default"
)

// Decision is the outcome of a guard. Render and a non-empty Redirect are
// mutually exclusive; both false/empty means "render nothing yet".
type Decision struct {
	Render   bool
	Redirect string
}

// Pending reports the "render nothing yet" outcome: the guard cannot
// decide until the session operation in flight settles.
func (d Decision) Pending() bool {
	return !d.Render && d.Redirect == ""
}

// Guest admits unauthenticated users and sends authenticated ones to the
// dashboard.
func Guest(s models.AuthState) Decision {
	if s.IsAuthenticated {
		return Decision{Redirect: DashboardPath}
	}
	return Decision{Render: true}
}

// Protected renders nothing while a check is in flight, sends
// unauthenticated users to the login page and admits the rest.
func Protected(s models.AuthState) Decision {
	if s.IsLoading {
		return Decision{}
	}
	if !s.IsAuthenticated {
		return Decision{Redirect: LoginPath}
	}
	return Decision{Render: true}
}

// Navigator performs the redirect side effect.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Enforce applies d: it navigates when d redirects and reports whether the
// guarded screen may render.
func Enforce(d Decision, nav Navigator) bool {
	if d.Redirect != "" && nav != nil {
		nav.Navigate(d.Redirect)
	}
	return d.Render
}

// Location is a Navigator that remembers the current path. The shell uses
// it as its router.
type Location struct {
	mu      sync.Mutex
	path    string
	history []string
}

func NewLocation(initial string) *Location {
	return &Location{path: initial}
}

func (l *Location) Navigate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if path == l.path {
		return
	}
	l.path = path
	l.history = append(l.history, path)
}

// Path returns the current path.
func (l *Location) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// History returns every path navigated to, oldest first. Repeated
// navigation to the current path is not recorded.
func (l *Location) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.history...)
}
