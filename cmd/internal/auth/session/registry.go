package session

import (
	"context"
	"errors"
	"log/slog"

	"aya/cmd/internal/docstore"
)

// Notifier is told when a device loses its binding to a newer login.
// Implementations must not block; Displaced runs on the login path.
type Notifier interface {
	Displaced(username, priorDeviceID, newDeviceID string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(username, priorDeviceID, newDeviceID string)

func (f NotifierFunc) Displaced(username, priorDeviceID, newDeviceID string) {
	f(username, priorDeviceID, newDeviceID)
}

// Notifiers fans a displacement out to several notifiers in order.
type Notifiers []Notifier

func (ns Notifiers) Displaced(username, priorDeviceID, newDeviceID string) {
	for _, n := range ns {
		if n != nil {
			n.Displaced(username, priorDeviceID, newDeviceID)
		}
	}
}

// Registry maps each username to its single active device id.
type Registry struct {
	doc      docstore.Document
	notifier Notifier
	log      *slog.Logger
}

// RegistryOption configures Registry behavior.
type RegistryOption func(*Registry) error

// WithNotifier sets the displacement notifier.
func WithNotifier(n Notifier) RegistryOption {
	return func(r *Registry) error {
		r.notifier = n
		return nil
	}
}

// WithRegistryLogger sets the logger used for storage failures.
func WithRegistryLogger(log *slog.Logger) RegistryOption {
	return func(r *Registry) error {
		if log == nil {
			return errors.New("session: nil logger")
		}
		r.log = log
		return nil
	}
}

// NewRegistry constructs a registry over the session document.
func NewRegistry(doc docstore.Document, opts ...RegistryOption) (*Registry, error) {
	if doc == nil {
		return nil, errors.New("session: nil session document")
	}
	r := &Registry{doc: doc, log: slog.Default()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// CheckDisplacement reports whether username is bound to a device other than deviceID.
// It never mutates the registry.
func (r *Registry) CheckDisplacement(ctx context.Context, username, deviceID string) (string, bool, error) {
	if username == "" || deviceID == "" {
		return "", false, ErrInvalidInput
	}
	prior, ok, err := r.doc.Get(ctx, username)
	if err != nil {
		return "", false, r.storageErr("session.CheckDisplacement", err)
	}
	if !ok || prior == deviceID {
		return "", false, nil
	}
	return prior, true, nil
}

// Bind records deviceID as the active device for username, replacing any prior one.
func (r *Registry) Bind(ctx context.Context, username, deviceID string) error {
	if username == "" || deviceID == "" {
		return ErrInvalidInput
	}
	if _, _, err := r.doc.Put(ctx, username, deviceID); err != nil {
		return r.storageErr("session.Bind", err)
	}
	return nil
}

// Unbind removes the binding for username. An absent binding is not an error.
func (r *Registry) Unbind(ctx context.Context, username string) error {
	if username == "" {
		return ErrInvalidInput
	}
	if _, err := r.doc.Delete(ctx, username); err != nil {
		return r.storageErr("session.Unbind", err)
	}
	return nil
}

// Claim binds deviceID and reports the device it displaced, in one atomic swap.
// Two concurrent logins for the same user therefore always see each other.
func (r *Registry) Claim(ctx context.Context, username, deviceID string) (string, bool, error) {
	if username == "" || deviceID == "" {
		return "", false, ErrInvalidInput
	}
	prior, had, err := r.doc.Put(ctx, username, deviceID)
	if err != nil {
		return "", false, r.storageErr("session.Claim", err)
	}
	if !had || prior == deviceID {
		return "", false, nil
	}
	if r.notifier != nil {
		r.notifier.Displaced(username, prior, deviceID)
	}
	return prior, true, nil
}

// Release removes the binding only if it still belongs to deviceID.
// A displaced device cannot end the session of the device that replaced it.
func (r *Registry) Release(ctx context.Context, username, deviceID string) (bool, error) {
	if username == "" || deviceID == "" {
		return false, ErrInvalidInput
	}
	removed, err := r.doc.DeleteIf(ctx, username, deviceID)
	if err != nil {
		return false, r.storageErr("session.Release", err)
	}
	return removed, nil
}

// Active reports whether deviceID is the bound device for username.
func (r *Registry) Active(ctx context.Context, username, deviceID string) (bool, error) {
	cur, ok, err := r.Current(ctx, username)
	if err != nil {
		return false, err
	}
	return ok && cur == deviceID, nil
}

// Current returns the bound device for username, if any.
func (r *Registry) Current(ctx context.Context, username string) (string, bool, error) {
	if username == "" {
		return "", false, ErrInvalidInput
	}
	cur, ok, err := r.doc.Get(ctx, username)
	if err != nil {
		return "", false, r.storageErr("session.Current", err)
	}
	return cur, ok, nil
}

// Count returns the number of bound users.
func (r *Registry) Count(ctx context.Context) (int, error) {
	n, err := r.doc.Len(ctx)
	if err != nil {
		return 0, r.storageErr("session.Count", err)
	}
	return n, nil
}

// Ping reports whether the session document is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	if p, ok := r.doc.(docstore.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := r.doc.Len(ctx)
	return err
}

func (r *Registry) storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	r.log.Error("storage.sessions.fail", "op", op, "err", err)
	return StorageError{Op: op, Err: err}
}
