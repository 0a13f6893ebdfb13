// Package redis shares session records between processes through a redis server.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "saai"

// SessionStore keeps one JSON document per profile plus a set of profile names.
type SessionStore struct {
	client goredis.Cmdable
	prefix string
}

// Connect dials addr and verifies the server answers.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %w", domain.ErrNetwork, addr, err)
	}
	return client, nil
}

// NewSessionStore wraps an existing client. An empty prefix uses DefaultPrefix.
func NewSessionStore(client goredis.Cmdable, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) sessionKey(profile string) string {
	return s.prefix + ":session:" + profile
}

func (s *SessionStore) profilesKey() string {
	return s.prefix + ":profiles"
}

// Save writes the record and indexes the profile in one MULTI/EXEC.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	if session.Profile == "" {
		return domain.ErrInvalidInput
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(session.Profile), data, 0)
		pipe.SAdd(ctx, s.profilesKey(), session.Profile)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Get retrieves the record for a profile.
func (s *SessionStore) Get(ctx context.Context, profile string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(profile)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return decodeSession(data)
}

// Delete removes the record for a profile.
func (s *SessionStore) Delete(ctx context.Context, profile string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(profile))
		pipe.SRem(ctx, s.profilesKey(), profile)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// List returns every record ordered by profile.
// Profiles whose document has disappeared are skipped.
func (s *SessionStore) List(ctx context.Context) ([]domain.Session, error) {
	profiles, err := s.client.SMembers(ctx, s.profilesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	sort.Strings(profiles)

	keys := make([]string, len(profiles))
	for i, p := range profiles {
		keys[i] = s.sessionKey(p)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		session, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func decodeSession(data []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}
