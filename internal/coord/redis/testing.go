package redis

import "github.com/redis/rueidis"

// NewSessionForTest creates a Session with an injected client.
func NewSessionForTest(c rueidis.Client, prefix string) *Session {
	return &Session{client: c, prefix: prefix}
}
