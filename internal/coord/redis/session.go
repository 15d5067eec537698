// Package redis implements coord.Session on Redis or Valkey via rueidis.
// Every znode is a string key "<prefix><path>" holding the node data.
//
// Solr does not read this key space. The driver emulates ZooKeeper for local
// runs and tests; collections still need their config sets provisioned in
// the ensemble Solr is attached to.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/logger"
)

var _ coord.Session = (*Session)(nil)

const scanCount = 100

// Config holds connection parameters.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Opener creates a client per session.
type Opener struct {
	cfg Config
}

// NewOpener validates cfg.
func NewOpener(cfg Config) (*Opener, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	return &Opener{cfg: cfg}, nil
}

// Open dials the server and checks it with PING.
func (o *Opener) Open(ctx context.Context) (coord.Session, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  o.cfg.Addrs,
		Username:     o.cfg.Username,
		Password:     o.cfg.Password,
		SelectDB:     o.cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s := &Session{client: client, prefix: o.cfg.KeyPrefix}
	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// Session is a rueidis-backed coordination session.
type Session struct {
	client rueidis.Client
	prefix string
}

// Ping checks connectivity.
func (s *Session) Ping(ctx context.Context) error {
	cmd := s.b().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// PathExists reports whether the node key exists.
func (s *Session) PathExists(ctx context.Context, path string) (bool, error) {
	cmd := s.b().Exists().Key(s.key(path)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &coord.Error{Op: coord.OpExists, Path: path, Err: err}
	}
	return n > 0, nil
}

// CopyPath claims dest with SET NX and writes every node below localSource.
func (s *Session) CopyPath(ctx context.Context, dest, localSource string) error {
	nodes, err := coord.LocalTree(dest, localSource)
	if err != nil {
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: err}
	}

	for _, parent := range coord.Parents(dest) {
		if _, err := s.setNX(ctx, parent); err != nil {
			return &coord.Error{Op: coord.OpCopy, Path: parent, Err: err}
		}
	}
	created, err := s.setNX(ctx, dest)
	if err != nil {
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: err}
	}
	if !created {
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: coord.ErrNodeExists}
	}

	if len(nodes) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, len(nodes))
	for i, n := range nodes {
		cmds[i] = s.b().Set().Key(s.key(n.Path)).Value(string(n.Data)).Build()
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &coord.Error{Op: coord.OpCopy, Path: nodes[i].Path, Err: err}
		}
	}

	logger.FromContext(ctx).Debug("coordination tree uploaded",
		zap.String("path", dest), zap.Int("nodes", len(nodes)))
	return nil
}

// DeletePath removes the node key and every key below it.
func (s *Session) DeletePath(ctx context.Context, path string) error {
	ok, err := s.PathExists(ctx, path)
	if err != nil {
		return &coord.Error{Op: coord.OpDelete, Path: path, Err: errors.Unwrap(err)}
	}
	if !ok {
		return &coord.Error{Op: coord.OpDelete, Path: path, Err: coord.ErrNoNode}
	}

	keys, err := s.scan(ctx, escapePattern(s.key(path))+"/*")
	if err != nil {
		return &coord.Error{Op: coord.OpDelete, Path: path, Err: err}
	}
	keys = append(keys, s.key(path))

	cmd := s.b().Del().Key(keys...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &coord.Error{Op: coord.OpDelete, Path: path, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Session) Close() error {
	s.client.Close()
	return nil
}

func (s *Session) setNX(ctx context.Context, path string) (bool, error) {
	cmd := s.b().Set().Key(s.key(path)).Value("").Nx().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Session) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *Session) key(path string) string {
	return s.prefix + strings.TrimPrefix(path, "/")
}

func (s *Session) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Session) b() rueidis.Builder {
	return s.client.B()
}

// escapePattern quotes glob metacharacters for SCAN MATCH.
func escapePattern(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
