package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Deliverer shows or sends a reminder when it fires.
type Deliverer interface {
	Deliver(ctx context.Context, req Request) error
}

// Authorizer is implemented by deliverers that can tell whether delivery is
// possible at all, e.g. because a helper binary is missing.
type Authorizer interface {
	Authorize(ctx context.Context) (bool, error)
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, req Request) error

func (f DelivererFunc) Deliver(ctx context.Context, req Request) error { return f(ctx, req) }

// Noop drops every reminder.
type Noop struct{}

func (Noop) Deliver(context.Context, Request) error { return nil }

// Fanout delivers to every deliverer and joins their errors.
type Fanout []Deliverer

func (f Fanout) Deliver(ctx context.Context, req Request) error {
	var errs []error
	for _, d := range f {
		if err := d.Deliver(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Authorize reports true when at least one member can deliver.
func (f Fanout) Authorize(ctx context.Context) (bool, error) {
	var errs []error
	for _, d := range f {
		a, ok := d.(Authorizer)
		if !ok {
			return true, nil
		}
		granted, err := a.Authorize(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if granted {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// appleScriptQuote renders s as an AppleScript string literal.
func appleScriptQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func osascriptArgs(req Request) []string {
	script := fmt.Sprintf("display notification %s with title %s",
		appleScriptQuote(req.Body), appleScriptQuote(req.Title))
	return []string{"-e", script}
}

func notifySendArgs(req Request) []string {
	args := []string{"--app-name=postdeck"}
	if req.Category != "" {
		args = append(args, "--category="+req.Category)
	}
	return append(args, "--", req.Title, req.Body)
}
