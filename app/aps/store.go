package aps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a session has no stored token.
var ErrNoSession = errors.New("aps: no token for session")

// TokenStore keeps user tokens keyed by session id until they expire.
type TokenStore interface {
	Save(ctx context.Context, sessionID string, tok Token) error
	Load(ctx context.Context, sessionID string) (*Token, error)
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]Token
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]Token),
		now:    time.Now,
	}
}

// Save stores tok and drops every expired session.
func (s *MemoryStore) Save(_ context.Context, sessionID string, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, t := range s.tokens {
		if t.TTL(now) <= 0 {
			delete(s.tokens, id)
		}
	}
	s.tokens[sessionID] = tok
	return nil
}

// Len is the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[sessionID]
	if !ok {
		return nil, ErrNoSession
	}
	if tok.TTL(s.now()) <= 0 {
		delete(s.tokens, sessionID)
		return nil, ErrNoSession
	}
	return &tok, nil
}

// RedisStore keeps tokens in Redis with the token lifetime as key TTL.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client, Prefix: "aps:session:"}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, tok Token) error {
	ttl := tok.TTL(time.Now())
	if ttl <= 0 {
		return fmt.Errorf("aps: token for session %s already expired", sessionID)
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.Prefix+sessionID, b, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Token, error) {
	val, err := s.Client.Get(ctx, s.Prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var tok Token
	if err := json.Unmarshal(val, &tok); err != nil {
		return nil, fmt.Errorf("aps: decode stored token: %w", err)
	}
	return &tok, nil
}
