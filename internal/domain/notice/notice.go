package notice

import (
	"context"
	"time"

	"github.com/harvesta/companion/internal/domain/remote"
)

// Kind tells the presentation layer how intrusive a notice must be.
type Kind string

const (
	// KindToast is a non-blocking message for transient failures.
	KindToast Kind = "toast"
	// KindModal blocks interaction until acknowledged (permission denials).
	KindModal Kind = "modal"
)

// Screen names the screen a notice or navigation refers to.
type Screen string

const (
	ScreenDashboard Screen = "dashboard"
	ScreenHarvest   Screen = "harvest"
	ScreenHistory   Screen = "history"
	ScreenUpload    Screen = "upload"
)

// Notice is a user-facing message produced at the screen boundary.
type Notice struct {
	Session   string    `json:"session"`
	Screen    Screen    `json:"screen"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier delivers notices to whoever renders them.
type Notifier interface {
	Publish(ctx context.Context, n Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice) error

// Publish implements Notifier.
func (f NotifierFunc) Publish(ctx context.Context, n Notice) error {
	return f(ctx, n)
}

// Discard drops every notice.
var Discard Notifier = NotifierFunc(func(context.Context, Notice) error { return nil })

// FromFailure builds the notice for a failed operation: transient network
// or upstream failures become toasts, everything else a modal.
func FromFailure(session string, screen Screen, title, message string, err error, at time.Time) Notice {
	kind := KindModal
	failure := remote.KindOf(err)
	if failure.Transient() {
		kind = KindToast
	}
	return Notice{
		Session:   session,
		Screen:    screen,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Code:      string(failure),
		CreatedAt: at,
	}
}
