// Package zookeeper implements coord.Session on top of a ZooKeeper ensemble.
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/logger"
)

const defaultSessionTimeout = 10 * time.Second

// conn is the subset of *zk.Conn used by Session.
type conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	Delete(path string, version int32) error
	Close()
}

// Config describes how to reach the ensemble.
type Config struct {
	// Hosts are "host:port" entries; a trailing "/chroot" on any entry applies to all.
	Hosts          []string
	SessionTimeout time.Duration
	Logger         *zap.Logger
}

type dialFunc func(servers []string, timeout time.Duration, l *zap.Logger) (conn, <-chan zk.Event, error)

func dialZooKeeper(servers []string, timeout time.Duration, l *zap.Logger) (conn, <-chan zk.Event, error) {
	c, events, err := zk.Connect(servers, timeout,
		zk.WithLogger(logger.StdLogger(l, "zookeeper", zap.DebugLevel)))
	if err != nil {
		return nil, nil, err
	}
	return c, events, nil
}

// Opener dials a fresh ZooKeeper session per Open call.
type Opener struct {
	servers []string
	chroot  string
	timeout time.Duration
	log     *zap.Logger
	dial    dialFunc
}

// NewOpener validates the ensemble and returns an Opener.
func NewOpener(cfg Config) (*Opener, error) {
	servers, chroot := ParseEnsemble(cfg.Hosts)
	if len(servers) == 0 {
		return nil, errors.New("zookeeper: no hosts configured")
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Opener{servers: servers, chroot: chroot, timeout: timeout, log: l, dial: dialZooKeeper}, nil
}

// Chroot returns the ensemble chroot ("" when none).
func (o *Opener) Chroot() string { return o.chroot }

// Open connects and waits until the session is established or ctx ends.
func (o *Opener) Open(ctx context.Context) (coord.Session, error) {
	c, events, err := o.dial(o.servers, o.timeout, o.log)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", strings.Join(o.servers, ","), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	for {
		select {
		case <-waitCtx.Done():
			c.Close()
			return nil, fmt.Errorf("connect %s: %w", strings.Join(o.servers, ","), waitCtx.Err())
		case ev, ok := <-events:
			if !ok {
				c.Close()
				return nil, errors.New("zookeeper: event channel closed before session was established")
			}
			if ev.State == zk.StateHasSession {
				return newSession(c, o.chroot), nil
			}
			if ev.State == zk.StateAuthFailed {
				c.Close()
				return nil, errors.New("zookeeper: authentication failed")
			}
		}
	}
}

// ParseEnsemble splits host entries into servers and a chroot.
// "zk1:2181,zk2:2181/solr" yields [zk1:2181 zk2:2181] and "/solr".
func ParseEnsemble(hosts []string) ([]string, string) {
	var (
		servers []string
		chroot  string
	)
	for _, h := range hosts {
		for _, s := range strings.Split(h, ",") {
			s = strings.TrimSpace(s)
			if i := strings.Index(s, "/"); i >= 0 {
				if root := strings.TrimRight(s[i:], "/"); root != "" {
					chroot = root
				}
				s = s[:i]
			}
			if s != "" {
				servers = append(servers, s)
			}
		}
	}
	return servers, chroot
}

// Session is a single ZooKeeper connection rooted at an optional chroot.
type Session struct {
	conn   conn
	chroot string
}

func newSession(c conn, chroot string) *Session {
	return &Session{conn: c, chroot: chroot}
}

func (s *Session) abs(p string) string {
	return path.Join("/", s.chroot, p)
}

// PathExists reports whether the node exists.
func (s *Session) PathExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, _, err := s.conn.Exists(s.abs(p))
	if err != nil {
		return false, &coord.Error{Op: coord.OpExists, Path: p, Err: mapErr(err)}
	}
	return ok, nil
}

// CopyPath creates dest and uploads every file below localSource into it.
// Fails with coord.ErrNodeExists when dest is already present.
func (s *Session) CopyPath(ctx context.Context, dest, localSource string) error {
	nodes, err := coord.LocalTree(dest, localSource)
	if err != nil {
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: err}
	}

	root := s.abs(dest)
	for _, parent := range coord.Parents(root) {
		if err := s.create(parent, nil); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return &coord.Error{Op: coord.OpCopy, Path: parent, Err: mapErr(err)}
		}
	}
	if err := s.create(root, nil); err != nil {
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: mapErr(err)}
	}

	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return &coord.Error{Op: coord.OpCopy, Path: n.Path, Err: err}
		}
		if err := s.create(s.abs(n.Path), n.Data); err != nil {
			return &coord.Error{Op: coord.OpCopy, Path: n.Path, Err: mapErr(err)}
		}
	}
	logger.FromContext(ctx).Debug("zookeeper tree uploaded",
		zap.String("path", root), zap.Int("nodes", len(nodes)))
	return nil
}

// DeletePath removes the node and its descendants.
func (s *Session) DeletePath(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.deleteRecursive(s.abs(p)); err != nil {
		return &coord.Error{Op: coord.OpDelete, Path: p, Err: mapErr(err)}
	}
	return nil
}

// Close ends the session.
func (s *Session) Close() error {
	s.conn.Close()
	return nil
}

func (s *Session) create(p string, data []byte) error {
	_, err := s.conn.Create(p, data, 0, zk.WorldACL(zk.PermAll))
	return err
}

func (s *Session) deleteRecursive(p string) error {
	children, _, err := s.conn.Children(p)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := s.deleteRecursive(path.Join(p, c)); err != nil && !errors.Is(err, zk.ErrNoNode) {
			return err
		}
	}
	return s.conn.Delete(p, -1)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, zk.ErrNodeExists):
		return errors.Join(coord.ErrNodeExists, err)
	case errors.Is(err, zk.ErrNoNode):
		return errors.Join(coord.ErrNoNode, err)
	default:
		return err
	}
}
