// Package coord defines the coordination-service contract used to publish,
// inspect and remove shared configuration trees.
//
// Sessions are scoped: open one per operation and always close it, see Do.
package coord

import (
	"context"
	"errors"
	"path"
)

// Namespace is the coordination-service directory holding config sets.
const Namespace = "configs"

var (
	// ErrNodeExists signals that a path is already present.
	ErrNodeExists = errors.New("coord: node already exists")
	// ErrNoNode signals that a path does not exist.
	ErrNoNode = errors.New("coord: node does not exist")
)

// Op names used for error context.
const (
	OpExists = "exists"
	OpCopy   = "copy"
	OpDelete = "delete"
	OpOpen   = "open"
)

// Error wraps a coordination-service failure with the operation and path.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "coord " + e.Op + ": " + e.Err.Error()
	}
	return "coord " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Session is a live connection to the coordination service.
// Paths are slash separated and relative to the service root (e.g. "configs/logs").
type Session interface {
	// PathExists reports whether path is present.
	PathExists(ctx context.Context, path string) (bool, error)
	// CopyPath uploads the local directory tree under dest. dest must not exist.
	CopyPath(ctx context.Context, dest, localSource string) error
	// DeletePath removes path and everything below it.
	DeletePath(ctx context.Context, path string) error
	// Close releases the session.
	Close() error
}

// Opener creates sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// ConfigPath returns the namespace path of a config set.
func ConfigPath(name string) string {
	return path.Join(Namespace, name)
}

// Do opens a session, runs fn and closes the session on every exit path.
// A close failure is joined to fn's error.
func Do(ctx context.Context, o Opener, fn func(Session) error) (err error) {
	s, err := o.Open(ctx)
	if err != nil {
		return &Error{Op: OpOpen, Err: err}
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, &Error{Op: "close", Err: cerr})
		}
	}()
	return fn(s)
}
